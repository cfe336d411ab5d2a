// Package project maintains per-project dual-currency balances and the
// reservation ledger backing movement escrow. Balances are mutated only
// through the escrow service.
package project

import (
	"context"
	"errors"
	"time"

	"bondly/internal/assets"
)

var (
	// ErrNotFound signals an unknown project slug.
	ErrNotFound = errors.New("project not found")
	// ErrInsufficientFunds signals that available balance (balance minus
	// outstanding reservations) cannot cover a reservation.
	ErrInsufficientFunds = errors.New("insufficient available project funds")
)

// Project is a named bucket of segregated balances. Both balances and both
// reservation counters are always non-negative, and reservations never exceed
// the balance in their currency.
type Project struct {
	Slug           string
	BalanceNative  int64
	BalanceStable  int64
	ReservedNative int64
	ReservedStable int64
	MovementCount  int64
	CreatedAt      time.Time
}

// Available returns the balance not locked by outstanding reservations.
func (p *Project) Available(currency assets.Currency) int64 {
	if currency == assets.Native {
		return p.BalanceNative - p.ReservedNative
	}
	return p.BalanceStable - p.ReservedStable
}

// Store persists projects. Every mutating call is atomic: concurrent callers
// never observe a partially applied reservation or settlement.
type Store interface {
	// Get returns a copy of the project or ErrNotFound.
	Get(ctx context.Context, slug string) (*Project, error)
	// Fund credits both balances, creating the project on first use.
	Fund(ctx context.Context, slug string, native, stable int64) (*Project, error)
	// ReserveForMovement atomically checks available balances, records the
	// reservation, and bumps the movement counter. Returns
	// ErrInsufficientFunds when either currency cannot be covered, leaving
	// the project untouched.
	ReserveForMovement(ctx context.Context, slug string, native, stable int64) error
	// ReleaseReservation drops a reservation without moving funds (movement
	// returned).
	ReleaseReservation(ctx context.Context, slug string, native, stable int64) error
	// Settle debits both the balances and the reservation (movement
	// released).
	Settle(ctx context.Context, slug string, native, stable int64) error
}
