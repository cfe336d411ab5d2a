// Package treasury accumulates fee shares and penalty proceeds. It is a pure
// accumulator with no further structure; the audit trail carries provenance.
package treasury

import "sync"

// HolderID is the asset-ledger holder the treasury's funds live under.
const HolderID = "treasury"

type Treasury struct {
	mu      sync.Mutex
	balance int64
}

func New() *Treasury {
	return &Treasury{}
}

// Credit adds proceeds to the treasury. Negative credits are ignored so a
// caller bug cannot drain the accumulator.
func (t *Treasury) Credit(amount int64) {
	if amount <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance += amount
}

// TotalBalance reports the accumulated native balance.
func (t *Treasury) TotalBalance() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}
