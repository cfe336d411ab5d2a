package assets

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryLedger is a process-local asset ledger for development and tests.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[Currency]int64
}

var _ Ledger = (*InMemoryLedger)(nil)
var _ Depositor = (*InMemoryLedger)(nil)

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[string]map[Currency]int64)}
}

// Transfer moves amount from one holder to another. The debit and credit are
// applied under a single lock so no partial transfer is ever observable.
func (l *InMemoryLedger) Transfer(_ context.Context, from, to string, currency Currency, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative, got %d", amount)
	}
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from][currency] < amount {
		return fmt.Errorf("transfer %d %s from %s: %w", amount, currency, from, ErrInsufficientFunds)
	}
	l.balances[from][currency] -= amount
	l.credit(to, currency, amount)
	return nil
}

// Deposit credits a holder out of thin air. Production funding happens on the
// real ledger before the engine ever sees the event.
func (l *InMemoryLedger) Deposit(_ context.Context, holder string, currency Currency, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("deposit amount must be non-negative, got %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(holder, currency, amount)
	return nil
}

// Balance reports a holder's balance in one currency.
func (l *InMemoryLedger) Balance(holder string, currency Currency) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[holder][currency]
}

func (l *InMemoryLedger) credit(holder string, currency Currency, amount int64) {
	if l.balances[holder] == nil {
		l.balances[holder] = make(map[Currency]int64)
	}
	l.balances[holder][currency] += amount
}
