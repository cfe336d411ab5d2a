// Package assets defines the port to the external value-transfer primitive.
// The engine never moves value itself; it asks the asset ledger to transfer
// between holders and treats the call as atomic with the enclosing operation.
package assets

import (
	"context"
	"errors"
)

// Currency selects which of the two segregated balances a transfer touches.
type Currency string

const (
	Native Currency = "native"
	Stable Currency = "stable"
)

// Currencies lists the supported currencies in settlement order.
func Currencies() []Currency {
	return []Currency{Native, Stable}
}

// ErrInsufficientFunds is returned when the paying holder cannot cover the
// requested amount. Services map it to CodeAssetTransferFailed.
var ErrInsufficientFunds = errors.New("insufficient funds")

//go:generate mockgen -source=ledger.go -destination=mocks/ledger_mock.go -package=mocks Ledger

// Ledger is the external asset ledger. Transfer either moves the full amount
// or fails without side effects.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, currency Currency, amount int64) error
}

// Depositor is implemented by ledgers that can credit a holder directly. The
// in-memory ledger uses it to mirror funding events in development and tests;
// production deployments fund holders out of band.
type Depositor interface {
	Deposit(ctx context.Context, holder string, currency Currency, amount int64) error
}
