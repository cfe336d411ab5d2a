package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger()
	require.NoError(t, ledger.Deposit(ctx, "p1", Stable, 1000))

	require.NoError(t, ledger.Transfer(ctx, "p1", "shop", Stable, 150))
	assert.Equal(t, int64(850), ledger.Balance("p1", Stable))
	assert.Equal(t, int64(150), ledger.Balance("shop", Stable))

	// Currencies are segregated: the native balance never existed.
	assert.Equal(t, int64(0), ledger.Balance("p1", Native))
}

func TestInMemoryLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger()
	require.NoError(t, ledger.Deposit(ctx, "p1", Stable, 100))

	err := ledger.Transfer(ctx, "p1", "shop", Stable, 101)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Failed transfer leaves both holders untouched.
	assert.Equal(t, int64(100), ledger.Balance("p1", Stable))
	assert.Equal(t, int64(0), ledger.Balance("shop", Stable))
}

func TestInMemoryLedgerZeroTransferIsNoop(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger()
	require.NoError(t, ledger.Transfer(ctx, "p1", "shop", Native, 0))
	assert.Equal(t, int64(0), ledger.Balance("shop", Native))
}

func TestInMemoryLedgerRejectsNegativeAmounts(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedger()
	assert.Error(t, ledger.Transfer(ctx, "p1", "shop", Stable, -1))
	assert.Error(t, ledger.Deposit(ctx, "p1", Stable, -1))
}
