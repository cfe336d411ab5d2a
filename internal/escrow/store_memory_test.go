package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	newMovement := func(project, slug string) *Movement {
		return &Movement{
			ProjectSlug:  project,
			Slug:         slug,
			Proposer:     "bob",
			Title:        "test movement",
			AmountStable: 10,
			Payee:        "shop",
			Status:       StatusProposed,
			CreatedAt:    time.Now().UTC(),
		}
	}

	t.Run("create and get return copies", func(t *testing.T) {
		store := NewInMemoryStore()
		m := newMovement("p1", "m1")
		require.NoError(t, store.CreateMovement(ctx, m))

		m.Status = StatusReleased // caller mutation must not leak in

		got, err := store.GetMovement(ctx, "p1", "m1")
		require.NoError(t, err)
		require.Equal(t, StatusProposed, got.Status)

		got.Status = StatusReturned // nor must reader mutation leak back
		again, err := store.GetMovement(ctx, "p1", "m1")
		require.NoError(t, err)
		require.Equal(t, StatusProposed, again.Status)
	})

	t.Run("duplicate create", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.CreateMovement(ctx, newMovement("p1", "m1")))
		err := store.CreateMovement(ctx, newMovement("p1", "m1"))
		require.True(t, errors.Is(err, ErrDuplicate))
	})

	t.Run("same slug under different projects", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.CreateMovement(ctx, newMovement("p1", "m1")))
		require.NoError(t, store.CreateMovement(ctx, newMovement("p2", "m1")))

		total, err := store.TotalMovements(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(2), total)
	})

	t.Run("update", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.CreateMovement(ctx, newMovement("p1", "m1")))

		m, err := store.GetMovement(ctx, "p1", "m1")
		require.NoError(t, err)
		m.Status = StatusRejectedOnce
		m.RejectedBy = "alice"
		require.NoError(t, store.UpdateMovement(ctx, m))

		got, err := store.GetMovement(ctx, "p1", "m1")
		require.NoError(t, err)
		require.Equal(t, StatusRejectedOnce, got.Status)
		require.Equal(t, "alice", got.RejectedBy)
	})

	t.Run("missing movement", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.GetMovement(ctx, "p1", "ghost")
		require.True(t, errors.Is(err, ErrNotFound))
		err = store.UpdateMovement(ctx, newMovement("p1", "ghost"))
		require.True(t, errors.Is(err, ErrNotFound))
	})
}
