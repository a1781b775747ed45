// Package state holds authoritative per-room player attributes in the shared
// store and applies gameplay actions to them. Each room's state is one hash
// under "game:<roomId>:state"; every mutation is expressed as an atomic store
// operation so concurrent actions from any process cannot lose updates.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/arenalabs/arena/internal/store"
)

// PlayerState is one player's mutable attributes within a room.
type PlayerState struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Health int    `json:"health"`
}

// Event is published on the room's event channel after every applied action.
type Event struct {
	PlayerID string `json:"playerId"`
	Action   Action `json:"action"`
}

// Store owns per-room player state and its notification channel.
type Store struct {
	store  store.Client
	logger *zap.Logger
}

// NewStore creates a game state Store.
//
// Precondition: st and logger must be non-nil.
func NewStore(st store.Client, logger *zap.Logger) *Store {
	return &Store{store: st, logger: logger}
}

// InitRoom writes default state (x=0, y=0, health=100) for each player into
// the room's hash.
func (s *Store) InitRoom(ctx context.Context, roomID string, playerIDs ...string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	fieldValues := make([]string, 0, len(playerIDs)*6)
	for _, id := range playerIDs {
		fieldValues = append(fieldValues,
			store.StateField(id, "x"), "0",
			store.StateField(id, "y"), "0",
			store.StateField(id, "health"), strconv.Itoa(MaxHealth),
		)
	}
	if err := s.store.HSet(ctx, store.GameStateKey(roomID), fieldValues...); err != nil {
		return fmt.Errorf("initializing state for room %s: %w", roomID, err)
	}
	return nil
}

// Player reconstructs one player's state from the room hash. Missing fields
// take the defaults, so a freshly initialized player and an absent field set
// read the same.
func (s *Store) Player(ctx context.Context, roomID, id string) (PlayerState, error) {
	fields, err := s.store.HGetAll(ctx, store.GameStateKey(roomID))
	if err != nil {
		return PlayerState{}, fmt.Errorf("reading state of room %s: %w", roomID, err)
	}
	return playerFromFields(fields, id), nil
}

// EnsurePlayer writes default state for id when the room is already
// initialized for play and the player has none. Rooms without a state hash
// (pure chat rooms, never-matched rooms) are left untouched, and an existing
// player's state is never reset.
func (s *Store) EnsurePlayer(ctx context.Context, roomID, id string) error {
	key := store.GameStateKey(roomID)
	n, err := s.store.HLen(ctx, key)
	if err != nil {
		return fmt.Errorf("checking state of room %s: %w", roomID, err)
	}
	if n == 0 {
		return nil
	}
	known, err := s.hasPlayer(ctx, key, id)
	if err != nil {
		return err
	}
	if known {
		return nil
	}
	return s.InitRoom(ctx, roomID, id)
}

// Apply mutates the room state according to the action and publishes an
// event on the room's channel. Actions referencing an unknown room or player
// are silent no-ops.
func (s *Store) Apply(ctx context.Context, roomID, playerID string, action Action) error {
	key := store.GameStateKey(roomID)

	known, err := s.hasPlayer(ctx, key, playerID)
	if err != nil {
		return err
	}
	if !known {
		s.logger.Debug("action for unknown room or player dropped",
			zap.String("room", roomID),
			zap.String("player", playerID),
		)
		return nil
	}

	switch action.Type {
	case ActionMove:
		if action.DX != 0 {
			if _, err := s.store.HIncrBy(ctx, key, store.StateField(playerID, "x"), int64(action.DX)); err != nil {
				return fmt.Errorf("moving %s in room %s: %w", playerID, roomID, err)
			}
		}
		if action.DY != 0 {
			if _, err := s.store.HIncrBy(ctx, key, store.StateField(playerID, "y"), int64(action.DY)); err != nil {
				return fmt.Errorf("moving %s in room %s: %w", playerID, roomID, err)
			}
		}

	case ActionAttack:
		targetKnown, err := s.hasPlayer(ctx, key, action.TargetID)
		if err != nil {
			return err
		}
		if !targetKnown {
			s.logger.Debug("attack on unknown target dropped",
				zap.String("room", roomID),
				zap.String("target", action.TargetID),
			)
			return nil
		}
		_, err = s.store.HIncrByBounded(ctx, key,
			store.StateField(action.TargetID, "health"),
			-int64(action.Damage), MinHealth, MaxHealth)
		if err != nil {
			return fmt.Errorf("applying damage to %s in room %s: %w", action.TargetID, roomID, err)
		}

	case ActionHeal:
		_, err := s.store.HIncrByBounded(ctx, key,
			store.StateField(playerID, "health"),
			HealAmount, MinHealth, MaxHealth)
		if err != nil {
			return fmt.Errorf("healing %s in room %s: %w", playerID, roomID, err)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}

	s.publishEvent(ctx, roomID, playerID, action)
	return nil
}

// RoomState returns the full current player state of the room, sorted by
// player id for deterministic broadcasts. An unknown room yields an empty
// slice.
func (s *Store) RoomState(ctx context.Context, roomID string) ([]PlayerState, error) {
	fields, err := s.store.HGetAll(ctx, store.GameStateKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("reading state of room %s: %w", roomID, err)
	}

	ids := make(map[string]struct{})
	for field := range fields {
		if id, ok := playerIDOfField(field); ok {
			ids[id] = struct{}{}
		}
	}

	players := make([]PlayerState, 0, len(ids))
	for id := range ids {
		players = append(players, playerFromFields(fields, id))
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

// RemovePlayer deletes the player's fields from the room hash. When the last
// player is removed the hash itself is deleted.
func (s *Store) RemovePlayer(ctx context.Context, roomID, id string) error {
	key := store.GameStateKey(roomID)
	err := s.store.HDel(ctx, key,
		store.StateField(id, "x"),
		store.StateField(id, "y"),
		store.StateField(id, "health"),
	)
	if err != nil {
		return fmt.Errorf("removing %s from room %s: %w", id, roomID, err)
	}

	remaining, err := s.store.HLen(ctx, key)
	if err != nil {
		return fmt.Errorf("checking room %s after removal: %w", roomID, err)
	}
	if remaining == 0 {
		if err := s.store.Del(ctx, key); err != nil {
			return fmt.Errorf("deleting empty room %s: %w", roomID, err)
		}
	}
	return nil
}

func (s *Store) hasPlayer(ctx context.Context, key, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	_, ok, err := s.store.HGet(ctx, key, store.StateField(id, "health"))
	if err != nil {
		return false, fmt.Errorf("looking up player %s: %w", id, err)
	}
	return ok, nil
}

// publishEvent notifies external subscribers on "game:<roomId>:events".
// Publish failures do not fail the already-applied action.
func (s *Store) publishEvent(ctx context.Context, roomID, playerID string, action Action) {
	payload, err := json.Marshal(Event{PlayerID: playerID, Action: action})
	if err != nil {
		s.logger.Error("marshalling room event", zap.String("room", roomID), zap.Error(err))
		return
	}
	if err := s.store.Publish(ctx, store.GameEventsChannel(roomID), payload); err != nil {
		s.logger.Warn("publishing room event",
			zap.String("room", roomID),
			zap.Error(err),
		)
	}
}

func playerFromFields(fields map[string]string, id string) PlayerState {
	p := PlayerState{ID: id, Health: MaxHealth}
	if raw, ok := fields[store.StateField(id, "x")]; ok {
		p.X = atoiOrZero(raw)
	}
	if raw, ok := fields[store.StateField(id, "y")]; ok {
		p.Y = atoiOrZero(raw)
	}
	if raw, ok := fields[store.StateField(id, "health")]; ok {
		p.Health = atoiOrZero(raw)
	}
	return p
}

// playerIDOfField splits "<playerId>:<attr>" on the final colon so player
// identifiers containing colons still resolve.
func playerIDOfField(field string) (string, bool) {
	for i := len(field) - 1; i >= 0; i-- {
		if field[i] == ':' {
			return field[:i], i > 0
		}
	}
	return "", false
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
