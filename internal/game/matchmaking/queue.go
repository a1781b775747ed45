// Package matchmaking groups waiting players into rooms. The queue is a
// strict FIFO backed by the shared store's "matchmaking:queue" list, so
// processes can enqueue and match against the same pool of waiters. There is
// no skill- or attribute-based matching and no dedup: the same identifier may
// wait more than once.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/arena/internal/game/room"
	"github.com/arenalabs/arena/internal/store"
)

// ErrQueueEmpty is returned by DequeueOne when no player is waiting.
var ErrQueueEmpty = errors.New("matchmaking: queue empty")

// Queue is the matchmaking FIFO.
type Queue struct {
	store store.Client
	rooms *room.Registry
}

// NewQueue creates a Queue backed by the given store and room registry.
//
// Precondition: st and rooms must be non-nil.
func NewQueue(st store.Client, rooms *room.Registry) *Queue {
	return &Queue{store: st, rooms: rooms}
}

// Enqueue appends playerID to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, playerID string) error {
	if err := q.store.RPush(ctx, store.MatchmakingQueueKey, playerID); err != nil {
		return fmt.Errorf("enqueueing %s: %w", playerID, err)
	}
	return nil
}

// DequeueOne pops the head of the queue, or returns ErrQueueEmpty.
func (q *Queue) DequeueOne(ctx context.Context) (string, error) {
	head, err := q.store.LPop(ctx, store.MatchmakingQueueKey)
	if errors.Is(err, store.ErrQueueEmpty) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("dequeueing: %w", err)
	}
	return head, nil
}

// TryMatch pops waiting players in arrival order until it holds roomSize
// distinct identifiers. A player waiting more than once fills a single slot;
// the surplus entries keep waiting for a later match. When roomSize distinct
// players were obtained, TryMatch creates a room containing them and returns
// the fresh room identifier. When the queue empties first, or room creation
// fails, every popped entry is returned to the queue with its multiplicity
// intact (order relative to other waiters is not preserved) and TryMatch
// returns "".
//
// Precondition: roomSize must be >= 1.
func (q *Queue) TryMatch(ctx context.Context, roomSize int) (string, error) {
	players := make([]string, 0, roomSize)
	seen := make(map[string]struct{}, roomSize)
	var extras []string
	for len(players) < roomSize {
		player, err := q.DequeueOne(ctx)
		if errors.Is(err, ErrQueueEmpty) {
			break
		}
		if err != nil {
			return "", q.requeue(ctx, append(players, extras...), err)
		}
		if _, dup := seen[player]; dup {
			extras = append(extras, player)
			continue
		}
		seen[player] = struct{}{}
		players = append(players, player)
	}

	if len(players) < roomSize {
		return "", q.requeue(ctx, append(players, extras...), nil)
	}

	// Surplus entries go back in line before the room is committed, so a
	// creation failure has one recovery path: requeue the matched players.
	if err := q.requeue(ctx, extras, nil); err != nil {
		return "", q.requeue(ctx, players, err)
	}

	roomID := newRoomID()
	if err := q.rooms.Create(ctx, roomID, players...); err != nil {
		return "", q.requeue(ctx, players, err)
	}
	return roomID, nil
}

// Len returns the current queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	depth, err := q.store.LLen(ctx, store.MatchmakingQueueKey)
	if err != nil {
		return 0, fmt.Errorf("reading queue length: %w", err)
	}
	return depth, nil
}

// requeue puts dequeued-but-unmatched players back, preserving multiplicity.
// If the push itself fails the players are lost; both errors are reported.
func (q *Queue) requeue(ctx context.Context, players []string, cause error) error {
	if len(players) == 0 {
		return cause
	}
	if err := q.store.RPush(ctx, store.MatchmakingQueueKey, players...); err != nil {
		err = fmt.Errorf("requeueing %d players: %w", len(players), err)
		return errors.Join(cause, err)
	}
	return cause
}

// newRoomID generates a room identifier that is collision-resistant across
// time and processes: a millisecond timestamp plus a random fragment.
func newRoomID() string {
	return fmt.Sprintf("match-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
