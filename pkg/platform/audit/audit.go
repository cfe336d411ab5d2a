// Package audit records every settlement-relevant state change. Store writes
// are synchronous and durable; forwarding to an external stream is fail-open
// and happens off the hot path.
package audit

import (
	"context"
	"time"
)

// Action names a settlement event. Values are stable identifiers consumed by
// downstream systems; never rename them.
type Action string

const (
	ActionProjectFunded   Action = "project_funded"
	ActionMovementCreated Action = "movement_created"
	ActionMovementReject  Action = "movement_rejected_once"
	ActionMovementRelease Action = "movement_released"
	ActionMovementReturn  Action = "movement_returned"
	ActionAccordProposed  Action = "accord_proposed"
	ActionAccordApproved  Action = "accord_approved"
	ActionAccordConfirmed Action = "accord_confirmed"
	ActionAccordBreached  Action = "accord_breached"
)

// Event is one audit record. Slug fields are filled as applicable to the
// action; amounts are in the smallest currency unit.
type Event struct {
	ID           string    `json:"id"`
	Action       Action    `json:"action"`
	Actor        string    `json:"actor"`
	ProjectSlug  string    `json:"project_slug,omitempty"`
	MovementSlug string    `json:"movement_slug,omitempty"`
	PropertySlug string    `json:"property_slug,omitempty"`
	AccordID     string    `json:"accord_id,omitempty"`
	AmountNative int64     `json:"amount_native,omitempty"`
	AmountStable int64     `json:"amount_stable,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Store persists audit events durably.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Stream forwards audit events to an external sink (Kafka in production).
type Stream interface {
	Publish(ctx context.Context, event Event) error
	Close()
}
