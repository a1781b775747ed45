package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/arenalabs/arena/internal/store"
)

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	require.NoError(t, r.Create(ctx, "r1", "a", "b"))
	players, err := r.Players(ctx, "r1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, players)
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	require.NoError(t, r.Create(ctx, "r1", "a"))
	require.NoError(t, r.Create(ctx, "r1", "a"))

	players, err := r.Players(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, players)
}

func TestCreateEmptyRoom(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	require.NoError(t, r.Create(ctx, "r1"))
	players, err := r.Players(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestAddAndRemovePlayers(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	require.NoError(t, r.AddPlayers(ctx, "r1", "a", "b"))
	require.NoError(t, r.AddPlayers(ctx, "r1", "b")) // present: no-op
	require.NoError(t, r.RemovePlayers(ctx, "r1", "c")) // absent: no-op
	require.NoError(t, r.RemovePlayers(ctx, "r1", "a"))

	players, err := r.Players(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, players)
}

func TestPlayersUnknownRoom(t *testing.T) {
	r := NewRegistry(store.NewMemory())
	players, err := r.Players(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestContains(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	require.NoError(t, r.AddPlayers(ctx, "r1", "a"))

	ok, err := r.Contains(ctx, "r1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Contains(ctx, "r1", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	require.NoError(t, r.AddPlayers(ctx, "r1", "a"))
	require.NoError(t, r.Delete(ctx, "r1"))

	players, err := r.Players(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, players)
}

// Membership after any sequence of adds and removes must equal the
// mathematical set produced by applying the same operations to a model set,
// regardless of duplicates and redundant calls.
func TestMembershipMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		r := NewRegistry(store.NewMemory())
		model := make(map[string]bool)

		ids := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := ids.Draw(t, "id")
			if rapid.Bool().Draw(t, "add") {
				require.NoError(t, r.AddPlayers(ctx, "r1", id))
				model[id] = true
			} else {
				require.NoError(t, r.RemovePlayers(ctx, "r1", id))
				delete(model, id)
			}
		}

		want := make([]string, 0, len(model))
		for id := range model {
			want = append(want, id)
		}
		got, err := r.Players(ctx, "r1")
		require.NoError(t, err)
		assert.ElementsMatch(t, want, got)
	})
}
