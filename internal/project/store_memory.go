package project

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore keeps projects in a process-local map. The single mutex makes
// every mutating call atomic, matching the Store contract.
type InMemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{projects: make(map[string]*Project)}
}

func (s *InMemoryStore) Get(_ context.Context, slug string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[slug]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", slug, ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Fund(_ context.Context, slug string, native, stable int64) (*Project, error) {
	if native < 0 || stable < 0 {
		return nil, fmt.Errorf("funding amounts must be non-negative, got native=%d stable=%d", native, stable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[slug]
	if !ok {
		p = &Project{Slug: slug, CreatedAt: time.Now().UTC()}
		s.projects[slug] = p
	}
	p.BalanceNative += native
	p.BalanceStable += stable
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) ReserveForMovement(_ context.Context, slug string, native, stable int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[slug]
	if !ok {
		return fmt.Errorf("project %q: %w", slug, ErrNotFound)
	}
	if p.BalanceNative-p.ReservedNative < native || p.BalanceStable-p.ReservedStable < stable {
		return fmt.Errorf("project %q cannot reserve native=%d stable=%d: %w", slug, native, stable, ErrInsufficientFunds)
	}
	p.ReservedNative += native
	p.ReservedStable += stable
	p.MovementCount++
	return nil
}

func (s *InMemoryStore) ReleaseReservation(_ context.Context, slug string, native, stable int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[slug]
	if !ok {
		return fmt.Errorf("project %q: %w", slug, ErrNotFound)
	}
	if p.ReservedNative < native || p.ReservedStable < stable {
		return fmt.Errorf("project %q reservation underflow releasing native=%d stable=%d", slug, native, stable)
	}
	p.ReservedNative -= native
	p.ReservedStable -= stable
	return nil
}

func (s *InMemoryStore) Settle(_ context.Context, slug string, native, stable int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[slug]
	if !ok {
		return fmt.Errorf("project %q: %w", slug, ErrNotFound)
	}
	if p.ReservedNative < native || p.ReservedStable < stable || p.BalanceNative < native || p.BalanceStable < stable {
		return fmt.Errorf("project %q settlement underflow for native=%d stable=%d", slug, native, stable)
	}
	p.BalanceNative -= native
	p.BalanceStable -= stable
	p.ReservedNative -= native
	p.ReservedStable -= stable
	return nil
}
