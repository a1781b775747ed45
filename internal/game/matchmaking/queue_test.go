package matchmaking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenalabs/arena/internal/game/room"
	"github.com/arenalabs/arena/internal/store"
)

func newQueue() (*Queue, *room.Registry) {
	st := store.NewMemory()
	rooms := room.NewRegistry(st)
	return NewQueue(st, rooms), rooms
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))
	require.NoError(t, q.Enqueue(ctx, "c"))

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.DequeueOne(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := q.DequeueOne(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestEnqueueAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "a"))

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestTryMatchFormsRoom(t *testing.T) {
	ctx := context.Background()
	q, rooms := newQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)
	assert.True(t, strings.HasPrefix(roomID, "match-"))

	members, err := rooms.Players(ctx, roomID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestTryMatchTakesOldestWaiters(t *testing.T) {
	ctx := context.Background()
	q, rooms := newQueue()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	members, err := rooms.Players(ctx, roomID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	remaining, err := q.DequeueOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", remaining)
}

func TestTryMatchConservesEntriesOnShortQueue(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, roomID)

	// The lone waiter is back in the queue.
	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	got, err := q.DequeueOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestTryMatchPreservesMultiplicityOnFailure(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "a"))

	roomID, err := q.TryMatch(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, roomID)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestTryMatchRequiresDistinctPlayers(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	// The same player waiting twice cannot fill both slots of a match.
	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "a"))

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, roomID)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestTryMatchSkipsDuplicateEntryAndKeepsItWaiting(t *testing.T) {
	ctx := context.Background()
	q, rooms := newQueue()

	for _, id := range []string{"a", "a", "b"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	members, err := rooms.Players(ctx, roomID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	// The surplus "a" entry is still in line for the next match.
	remaining, err := q.DequeueOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", remaining)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestTryMatchEmptyQueue(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue()

	roomID, err := q.TryMatch(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, roomID)
}

func TestRoomIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newRoomID()
		require.False(t, seen[id], "duplicate room id %s", id)
		seen[id] = true
	}
}
