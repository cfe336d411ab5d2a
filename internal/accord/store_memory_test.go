package accord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bondly/internal/penalty"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	newAccord := func(property string) *Accord {
		return &Accord{
			PropertySlug: property,
			ID:           uuid.New(),
			Proposer:     "bob",
			Deposit:      1000,
			FeeRateBps:   4000,
			Status:       StatusProposed,
			ProposedAt:   time.Now().UTC(),
		}
	}

	t.Run("create and get return copies", func(t *testing.T) {
		store := NewInMemoryStore()
		a := newAccord("flat-9")
		require.NoError(t, store.CreateAccord(ctx, a))

		a.Status = StatusBreached

		got, err := store.GetAccord(ctx, "flat-9", a.ID)
		require.NoError(t, err)
		require.Equal(t, StatusProposed, got.Status)
	})

	t.Run("duplicate create", func(t *testing.T) {
		store := NewInMemoryStore()
		a := newAccord("flat-9")
		require.NoError(t, store.CreateAccord(ctx, a))
		err := store.CreateAccord(ctx, a)
		require.True(t, errors.Is(err, ErrDuplicate))
	})

	t.Run("missing accord", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.GetAccord(ctx, "flat-9", uuid.New())
		require.True(t, errors.Is(err, ErrNotFound))
		err = store.UpdateAccord(ctx, newAccord("flat-9"))
		require.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("occurrence counters are per property per severity", func(t *testing.T) {
		store := NewInMemoryStore()

		n, err := store.IncrementOccurrence(ctx, "flat-9", penalty.Hard)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = store.IncrementOccurrence(ctx, "flat-9", penalty.Hard)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		n, err = store.IncrementOccurrence(ctx, "flat-9", penalty.Soft)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = store.IncrementOccurrence(ctx, "flat-10", penalty.Hard)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("counters by status", func(t *testing.T) {
		store := NewInMemoryStore()

		confirmed := newAccord("flat-9")
		confirmed.Status = StatusConfirmed
		approved := newAccord("flat-9")
		approved.Status = StatusApproved
		breached := newAccord("flat-9")
		breached.Status = StatusBreached
		other := newAccord("flat-10")

		for _, a := range []*Accord{confirmed, approved, breached, newAccord("flat-9"), other} {
			require.NoError(t, store.CreateAccord(ctx, a))
		}

		c, err := store.Counters(ctx, "flat-9")
		require.NoError(t, err)
		require.Equal(t, Counters{Proposed: 4, Approved: 2, Confirmed: 1}, c)

		total, err := store.TotalAccords(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(5), total)
	})
}
