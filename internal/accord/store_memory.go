package accord

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bondly/internal/penalty"
)

type accordKey struct {
	property string
	id       uuid.UUID
}

type occurrenceKey struct {
	property string
	severity penalty.Severity
}

// InMemoryStore keeps accords and occurrence counters in process-local maps.
type InMemoryStore struct {
	mu          sync.RWMutex
	accords     map[accordKey]*Accord
	occurrences map[occurrenceKey]int
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accords:     make(map[accordKey]*Accord),
		occurrences: make(map[occurrenceKey]int),
	}
}

func (s *InMemoryStore) CreateAccord(_ context.Context, accord *Accord) error {
	key := accordKey{property: accord.PropertySlug, id: accord.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accords[key]; exists {
		return fmt.Errorf("accord %s under property %q: %w", accord.ID, accord.PropertySlug, ErrDuplicate)
	}
	copied := *accord
	s.accords[key] = &copied
	return nil
}

func (s *InMemoryStore) GetAccord(_ context.Context, propertySlug string, id uuid.UUID) (*Accord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accords[accordKey{property: propertySlug, id: id}]
	if !ok {
		return nil, fmt.Errorf("accord %s under property %q: %w", id, propertySlug, ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (s *InMemoryStore) UpdateAccord(_ context.Context, accord *Accord) error {
	key := accordKey{property: accord.PropertySlug, id: accord.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accords[key]; !ok {
		return fmt.Errorf("accord %s under property %q: %w", accord.ID, accord.PropertySlug, ErrNotFound)
	}
	copied := *accord
	s.accords[key] = &copied
	return nil
}

func (s *InMemoryStore) IncrementOccurrence(_ context.Context, propertySlug string, severity penalty.Severity) (int, error) {
	key := occurrenceKey{property: propertySlug, severity: severity}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences[key]++
	return s.occurrences[key], nil
}

func (s *InMemoryStore) TotalAccords(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.accords)), nil
}

func (s *InMemoryStore) Counters(_ context.Context, propertySlug string) (Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counters
	for key, a := range s.accords {
		if key.property != propertySlug {
			continue
		}
		c.Proposed++
		switch a.Status {
		case StatusConfirmed:
			c.Approved++
			c.Confirmed++
		case StatusApproved:
			c.Approved++
		}
	}
	return c, nil
}
