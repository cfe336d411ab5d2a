package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Release only deletes the key when it still holds our token, so an expired
// lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker is a Redis-backed distributed lock. The TTL bounds how long a
// crashed holder can block others; every guarded operation finishes well
// within it.
type Locker struct {
	client  *Client
	ttl     time.Duration
	backoff time.Duration
	prefix  string
}

// NewLocker builds a Locker with production defaults.
func NewLocker(client *Client) *Locker {
	return &Locker{
		client:  client,
		ttl:     10 * time.Second,
		backoff: 20 * time.Millisecond,
		prefix:  "bondly:lock:",
	}
}

// Acquire polls SET NX until the lock is held or the context expires.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.prefix + key
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(l.backoff):
		}
	}
}
