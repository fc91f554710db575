// Package summary produces broker-summary snapshots for the feed and the
// REST endpoint: a TTL cache in front of a quote-derived generator, with
// an optional vendor-file override for local debugging.
package summary

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the snapshot-cache contract. A (nil, false) Get result is a
// miss; errors are reported separately so callers can degrade to a fresh
// generate instead of failing the request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// memoryEntry holds one cached value and its expiry deadline.
type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is the in-process fallback used when redis is disabled:
// a bounded TTL map with lazy expiry.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

const defaultMaxEntries = 100

// NewMemoryCache creates an empty in-process cache holding at most
// maxEntries values (0 means the default of 100).
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

// Set stores val under key for ttl. When the cache is full, expired
// entries are purged first; if it is still full one arbitrary entry is
// evicted (coarse cap, matching the small snapshot working set).
func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxEntries {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}

	c.entries[key] = memoryEntry{val: val, expires: c.now().Add(ttl)}
	return nil
}

// Ping always succeeds for the in-process cache.
func (c *MemoryCache) Ping(_ context.Context) error { return nil }

// RedisCache stores snapshots in redis, shared across instances.
type RedisCache struct {
	rdb redis.Cmdable
}

// NewRedisCache wraps an already-configured redis client.
func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get returns the cached value for key; redis.Nil maps to a plain miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores val under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

// Ping checks redis connectivity; used by the readiness probe.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
