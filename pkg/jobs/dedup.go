package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Dedup is the single-writer primitive guarding the enqueue path. Within
// the TTL window, the first TryAcquire for a key wins and every other
// caller is told to skip. Keys expire on their own; jobs never release
// them early so a crashed worker's window still dampens re-triggers.
type Dedup interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// DedupKey builds the task-scoped dedup key for a lease.
func DedupKey(task, leaseID string) string {
	return fmt.Sprintf("dedup:task:%s:lease:%s", task, leaseID)
}

type memoryDedup struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryDedup returns a process-local Dedup for tests and single-node
// deployments.
func NewMemoryDedup() Dedup {
	return &memoryDedup{expires: map[string]time.Time{}, now: time.Now}
}

func (d *memoryDedup) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.expires[key]; ok && exp.After(now) {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

func (d *memoryDedup) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.expires, key)
	return nil
}

type redisDedup struct {
	c redis.UniversalClient
}

// NewRedisDedup returns a Dedup backed by redis SET NX with expiry, the
// shared single-writer primitive for multi-node deployments.
func NewRedisDedup(c redis.UniversalClient) Dedup {
	return &redisDedup{c: c}
}

func (d *redisDedup) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.c.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "dedup: setnx %s", key)
	}
	return ok, nil
}

func (d *redisDedup) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(d.c.Del(ctx, key).Err(), "dedup: del %s", key)
}
