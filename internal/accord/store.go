package accord

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"bondly/internal/penalty"
)

var (
	ErrNotFound  = errors.New("accord not found")
	ErrDuplicate = errors.New("accord already exists")
)

// Store persists accords and the per-property breach occurrence counters.
type Store interface {
	CreateAccord(ctx context.Context, accord *Accord) error
	GetAccord(ctx context.Context, propertySlug string, id uuid.UUID) (*Accord, error)
	UpdateAccord(ctx context.Context, accord *Accord) error

	// IncrementOccurrence bumps the property's breach counter for one
	// severity class and returns the new count. The count only ever grows.
	IncrementOccurrence(ctx context.Context, propertySlug string, severity penalty.Severity) (int, error)

	Counters(ctx context.Context, propertySlug string) (Counters, error)

	// TotalAccords counts accords across every property.
	TotalAccords(ctx context.Context) (int64, error)
}
