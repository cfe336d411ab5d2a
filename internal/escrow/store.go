package escrow

import (
	"context"
	"errors"
)

var (
	// ErrDuplicate signals an existing (project, movement) slug pair.
	ErrDuplicate = errors.New("movement already exists")
	// ErrNotFound signals an unknown movement.
	ErrNotFound = errors.New("movement not found")
)

// Store persists movements. Uniqueness of (ProjectSlug, Slug) is enforced by
// the store; the service serializes writers per project so status updates
// never race.
type Store interface {
	// CreateMovement inserts a new movement or returns ErrDuplicate.
	CreateMovement(ctx context.Context, movement *Movement) error
	// GetMovement returns a copy of the movement or ErrNotFound.
	GetMovement(ctx context.Context, projectSlug, movementSlug string) (*Movement, error)
	// UpdateMovement replaces the stored record for an existing movement.
	UpdateMovement(ctx context.Context, movement *Movement) error
	// TotalMovements counts every movement ever created.
	TotalMovements(ctx context.Context) (int64, error)
}
