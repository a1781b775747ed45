package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/arenalabs/arena/internal/game/room"
	"github.com/arenalabs/arena/internal/game/state"
)

// Broadcaster fans room-scoped messages out to the room's members that are
// connected to this process. Members without a live connection are silently
// skipped; there is no queuing of missed updates.
type Broadcaster struct {
	conns  *Registry
	rooms  *room.Registry
	states *state.Store
	logger *zap.Logger
}

// NewBroadcaster creates a Broadcaster.
//
// Precondition: all arguments must be non-nil.
func NewBroadcaster(conns *Registry, rooms *room.Registry, states *state.Store, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		conns:  conns,
		rooms:  rooms,
		states: states,
		logger: logger,
	}
}

// PushState re-reads the room's canonical player state and sends a
// state_update to every member with a live connection. Stale members left
// behind by disconnects are tolerated by skipping them.
func (b *Broadcaster) PushState(ctx context.Context, roomID string) error {
	players, err := b.states.RoomState(ctx, roomID)
	if err != nil {
		return fmt.Errorf("reading state for broadcast: %w", err)
	}

	msg, err := NewMessage(TypeStateUpdate, StateUpdatePayload{Players: players})
	if err != nil {
		return fmt.Errorf("building state_update: %w", err)
	}
	return b.toRoom(ctx, roomID, "", msg)
}

// Relay wraps payload in a server-origin envelope and sends it to every
// member of the room except the sender.
func (b *Broadcaster) Relay(ctx context.Context, roomID, senderID string, payload json.RawMessage) error {
	return b.toRoom(ctx, roomID, senderID, Message{Type: TypeServer, Payload: payload})
}

// NotifyMatch tells each matched player which room they were placed in.
func (b *Broadcaster) NotifyMatch(_ context.Context, roomID string, players []string) error {
	msg, err := NewMessage(TypeMatchFound, MatchStartPayload{Room: roomID, Players: players})
	if err != nil {
		return fmt.Errorf("building match_start: %w", err)
	}
	b.sendEach(players, msg)
	return nil
}

// toRoom sends msg to every current room member except excludeID.
func (b *Broadcaster) toRoom(ctx context.Context, roomID, excludeID string, msg Message) error {
	members, err := b.rooms.Players(ctx, roomID)
	if err != nil {
		return fmt.Errorf("listing members for broadcast: %w", err)
	}

	recipients := members[:0]
	for _, member := range members {
		if member != excludeID {
			recipients = append(recipients, member)
		}
	}
	b.sendEach(recipients, msg)
	return nil
}

func (b *Broadcaster) sendEach(ids []string, msg Message) {
	for _, id := range ids {
		conn, ok := b.conns.Lookup(id)
		if !ok {
			continue
		}
		if err := conn.Send(msg); err != nil {
			b.logger.Warn("sending to connection",
				zap.String("conn_id", id),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
		}
	}
}
