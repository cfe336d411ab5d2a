// Package locks serializes operations per key. Every escrow and accord
// mutation runs under the lock of its project or property so the status
// check and the transition commit as one unit.
package locks

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock for a key and returns its release
// function.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Keyed is the in-process Locker. Mutexes are created on first use and kept
// for the process lifetime; the key space (project and property slugs) is
// small and bounded.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Locker = (*Keyed)(nil)

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) Acquire(_ context.Context, key string) (func(), error) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}
