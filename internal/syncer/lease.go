package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyRunning signals that a sync run is already in flight. A new
// invocation is rejected immediately, never queued.
var ErrAlreadyRunning = errors.New("sync run already in progress")

// Lease is the run-in-flight flag: a leased state object with an owner and
// an expiry, so a crashed run cannot wedge the system past the lease TTL.
type Lease interface {
	// Acquire claims the lease, returning ErrAlreadyRunning when another
	// holder has it.
	Acquire(ctx context.Context) error

	// Release gives the lease up. Only the current holder's release has
	// any effect; a stale holder releasing after expiry is a no-op.
	Release(ctx context.Context) error
}

// releaseScript deletes the lease key only if this holder still owns it,
// so a run that outlived its TTL cannot release a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLease implements Lease with SET NX EX on a single key.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	owner string
}

// NewRedisLease creates a Redis-backed lease.
func NewRedisLease(client *redis.Client, key string, ttl time.Duration) *RedisLease {
	if key == "" {
		key = "progress:sync:lease"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLease{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// Acquire claims the lease with a fresh owner token.
func (l *RedisLease) Acquire(ctx context.Context) error {
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	l.mu.Lock()
	l.owner = owner
	l.mu.Unlock()

	return nil
}

// Release gives up the lease if this instance still holds it.
func (l *RedisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	owner := l.owner
	l.owner = ""
	l.mu.Unlock()

	if owner == "" {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release sync lease: %w", err)
	}

	return nil
}
