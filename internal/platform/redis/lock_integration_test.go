//go:build integration

package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	platformredis "bondly/internal/platform/redis"
	"bondly/pkg/testutil/containers"
)

func TestLockerMutualExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	locker := platformredis.NewLocker(rc.Client)

	const goroutines = 20
	var wg sync.WaitGroup
	var inCritical int
	var max int
	var mu sync.Mutex

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "p1")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > max {
				max = inCritical
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, max, "at most one holder at a time")
}

func TestLockerIndependentKeys(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	locker := platformredis.NewLocker(rc.Client)

	releaseA, err := locker.Acquire(ctx, "p1")
	require.NoError(t, err)
	defer releaseA()

	// A different key must not block.
	acquireCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	releaseB, err := locker.Acquire(acquireCtx, "p2")
	require.NoError(t, err)
	releaseB()
}

func TestLockerAcquireTimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	locker := platformredis.NewLocker(rc.Client)

	release, err := locker.Acquire(ctx, "p1")
	require.NoError(t, err)
	defer release()

	timeoutCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(timeoutCtx, "p1")
	require.Error(t, err)
}
