// Package penalty computes escalating breach penalty rates from a fixed tier
// schedule. The schedule is configured once at startup and never mutated.
package penalty

import (
	dErrors "bondly/pkg/domain-errors"
)

// Severity classifies how steeply a breach escalates with repetition.
type Severity string

const (
	Hard Severity = "hard"
	Soft Severity = "soft"
)

// Valid reports whether s is a known severity class.
func (s Severity) Valid() bool {
	return s == Hard || s == Soft
}

// Tier holds the basis-point rates for one occurrence tier.
type Tier struct {
	Hard int
	Soft int
}

// DefaultSchedule is the production tier table. Tier 0 means no occurrences;
// both classes fully forfeit at tier 3 so a penalty can never exceed the
// deposited value.
func DefaultSchedule() []Tier {
	return []Tier{
		{Hard: 0, Soft: 0},
		{Hard: 3000, Soft: 1500},
		{Hard: 6000, Soft: 2000},
		{Hard: 10000, Soft: 10000},
	}
}

// Engine is a pure lookup over an immutable tier schedule.
type Engine struct {
	schedule []Tier
}

// NewEngine validates and freezes the schedule. Rates must be basis points in
// [0, 10000].
func NewEngine(schedule []Tier) (*Engine, error) {
	if len(schedule) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "penalty schedule must have at least one tier")
	}
	for i, tier := range schedule {
		if tier.Hard < 0 || tier.Hard > 10000 || tier.Soft < 0 || tier.Soft > 10000 {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "penalty tier %d rates must be within [0, 10000] basis points", i)
		}
	}
	frozen := make([]Tier, len(schedule))
	copy(frozen, schedule)
	return &Engine{schedule: frozen}, nil
}

// Rate returns the basis-point penalty rate for a severity class and an
// occurrence tier. Tiers beyond the schedule clamp to the last row; negative
// tiers clamp to zero. An unknown severity is a programming error and is
// never silently defaulted.
func (e *Engine) Rate(severity Severity, occurrenceTier int) (int, error) {
	if !severity.Valid() {
		return 0, dErrors.Newf(dErrors.CodeInvalidSeverityClass, "unknown severity class %q", severity)
	}
	if occurrenceTier < 0 {
		occurrenceTier = 0
	}
	if occurrenceTier >= len(e.schedule) {
		occurrenceTier = len(e.schedule) - 1
	}
	tier := e.schedule[occurrenceTier]
	if severity == Hard {
		return tier.Hard, nil
	}
	return tier.Soft, nil
}

// MaxTier is the highest defined occurrence tier.
func (e *Engine) MaxTier() int {
	return len(e.schedule) - 1
}
