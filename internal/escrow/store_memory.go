package escrow

import (
	"context"
	"fmt"
	"sync"
)

type movementKey struct {
	project  string
	movement string
}

// InMemoryStore keeps movements in a process-local map.
type InMemoryStore struct {
	mu        sync.RWMutex
	movements map[movementKey]*Movement
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{movements: make(map[movementKey]*Movement)}
}

func (s *InMemoryStore) CreateMovement(_ context.Context, movement *Movement) error {
	key := movementKey{project: movement.ProjectSlug, movement: movement.Slug}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.movements[key]; exists {
		return fmt.Errorf("movement %q in project %q: %w", movement.Slug, movement.ProjectSlug, ErrDuplicate)
	}
	copied := *movement
	s.movements[key] = &copied
	return nil
}

func (s *InMemoryStore) GetMovement(_ context.Context, projectSlug, movementSlug string) (*Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[movementKey{project: projectSlug, movement: movementSlug}]
	if !ok {
		return nil, fmt.Errorf("movement %q in project %q: %w", movementSlug, projectSlug, ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

func (s *InMemoryStore) UpdateMovement(_ context.Context, movement *Movement) error {
	key := movementKey{project: movement.ProjectSlug, movement: movement.Slug}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movements[key]; !ok {
		return fmt.Errorf("movement %q in project %q: %w", movement.Slug, movement.ProjectSlug, ErrNotFound)
	}
	copied := *movement
	s.movements[key] = &copied
	return nil
}

func (s *InMemoryStore) TotalMovements(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.movements)), nil
}
