// Package accord tracks per-property accords through their lifecycle and
// applies escalating penalties when one is breached. An accord carries a
// native-currency deposit that settles through the property's fee rate when
// the accord ends; a breach first forfeits a schedule-driven share of the
// deposit to the treasury.
package accord

import (
	"time"

	"github.com/google/uuid"

	"bondly/internal/penalty"
)

// Status is the lifecycle state of an accord.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusApproved  Status = "approved"
	StatusConfirmed Status = "confirmed"
	StatusBreached  Status = "breached"
)

// Terminal reports whether the accord accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusBreached
}

// Accord is one tracked agreement under a property.
type Accord struct {
	PropertySlug string
	ID           uuid.UUID
	Proposer     string
	Deposit      int64
	FeeRateBps   int
	Status       Status
	ProposedAt   time.Time

	// Breach fields are zero until RecordBreach marks the accord terminal.
	BreachSeverity   penalty.Severity
	BreachOccurrence int
	PenaltyCollected int64

	// Settlement shares recorded when the accord reaches a terminal state.
	// The fee share stays with the property; the refund returns to the
	// proposer.
	FeeCollected   int64
	ProposerRefund int64
}

// Counters aggregates a property's accords by how far they progressed.
// Approved includes confirmed accords; proposed includes everything.
type Counters struct {
	Proposed  int64 `json:"proposed"`
	Approved  int64 `json:"approved"`
	Confirmed int64 `json:"confirmed"`
}
