// Package room tracks room membership in the shared store. A room is a set
// of player identifiers under "room:<roomId>:players"; every server process
// sees the same membership.
package room

import (
	"context"
	"fmt"

	"github.com/arenalabs/arena/internal/store"
)

// Registry owns the mapping from room identifier to member identifiers.
// Membership is the only state this component manages; room lifecycle beyond
// membership belongs to the caller.
type Registry struct {
	store store.Client
}

// NewRegistry creates a Registry backed by the given store.
//
// Precondition: st must be non-nil.
func NewRegistry(st store.Client) *Registry {
	return &Registry{store: st}
}

// Create adds the initial members to the room's set. Creating a room that
// already exists, or re-adding a present member, has no effect. An empty
// member list is allowed; the set then materializes on the first add.
func (r *Registry) Create(ctx context.Context, roomID string, members ...string) error {
	if err := r.store.SAdd(ctx, store.RoomPlayersKey(roomID), members...); err != nil {
		return fmt.Errorf("creating room %s: %w", roomID, err)
	}
	return nil
}

// AddPlayers adds ids to the room's member set. Ids already present are
// no-ops.
func (r *Registry) AddPlayers(ctx context.Context, roomID string, ids ...string) error {
	if err := r.store.SAdd(ctx, store.RoomPlayersKey(roomID), ids...); err != nil {
		return fmt.Errorf("adding players to room %s: %w", roomID, err)
	}
	return nil
}

// RemovePlayers removes ids from the room's member set. Absent ids are
// no-ops.
func (r *Registry) RemovePlayers(ctx context.Context, roomID string, ids ...string) error {
	if err := r.store.SRem(ctx, store.RoomPlayersKey(roomID), ids...); err != nil {
		return fmt.Errorf("removing players from room %s: %w", roomID, err)
	}
	return nil
}

// Players returns the room's member identifiers in no particular order.
// An unknown room yields an empty slice.
func (r *Registry) Players(ctx context.Context, roomID string) ([]string, error) {
	members, err := r.store.SMembers(ctx, store.RoomPlayersKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("listing players of room %s: %w", roomID, err)
	}
	return members, nil
}

// Contains reports whether id is a member of the room.
func (r *Registry) Contains(ctx context.Context, roomID, id string) (bool, error) {
	ok, err := r.store.SIsMember(ctx, store.RoomPlayersKey(roomID), id)
	if err != nil {
		return false, fmt.Errorf("checking membership in room %s: %w", roomID, err)
	}
	return ok, nil
}

// Delete removes the room's membership set entirely.
func (r *Registry) Delete(ctx context.Context, roomID string) error {
	if err := r.store.Del(ctx, store.RoomPlayersKey(roomID)); err != nil {
		return fmt.Errorf("deleting room %s: %w", roomID, err)
	}
	return nil
}
