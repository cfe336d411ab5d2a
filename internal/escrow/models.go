// Package escrow implements the movement consensus protocol: parties propose
// monetary movements against a project's escrowed balance and a two-phase
// review either releases the funds to the payee or returns them to the
// project. One independent approval is enough to pay out; it takes two
// independent rejections to block.
package escrow

import (
	"time"
)

// Status is the movement state machine's tagged variant.
type Status string

const (
	// StatusProposed awaits its first review.
	StatusProposed Status = "proposed"
	// StatusRejectedOnce awaits a second, distinct reviewer to break the tie.
	StatusRejectedOnce Status = "rejected_once"
	// StatusReleased is terminal: funds were transferred to the payee.
	StatusReleased Status = "released"
	// StatusReturned is terminal: the reservation was dropped, balances
	// unchanged from their pre-movement values.
	StatusReturned Status = "returned"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusReturned
}

// Action is a reviewer's verdict on a pending movement.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// transitions is the protocol's explicit transition table. Absent entries are
// illegal transitions; terminal states have no entries at all.
var transitions = map[Status]map[Action]Status{
	StatusProposed: {
		ActionApprove: StatusReleased,
		ActionReject:  StatusRejectedOnce,
	},
	StatusRejectedOnce: {
		ActionApprove: StatusReleased,
		ActionReject:  StatusReturned,
	},
}

func nextStatus(current Status, action Action) (Status, bool) {
	next, ok := transitions[current][action]
	return next, ok
}

// Movement is a proposed payment from a project's escrowed balance. Identity
// is the (ProjectSlug, Slug) pair; once finalized the record is immutable
// history.
type Movement struct {
	ProjectSlug  string
	Slug         string
	Proposer     string
	Title        string
	Memo         string
	AmountStable int64
	AmountNative int64
	Payee        string
	Status       Status
	// RejectedBy is the first rejecter while in StatusRejectedOnce; it is
	// preserved on finalization for the audit trail.
	RejectedBy string
	// FinalizedBy is the reviewer whose verdict closed the movement.
	FinalizedBy string
	CreatedAt   time.Time
	FinalizedAt *time.Time
}
