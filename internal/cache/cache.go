// Package cache provides the process-local, TTL-bound entity cache. It is a
// latency optimization only: no cross-process coherence is guaranteed, and
// correctness of concurrent mutation never depends on it.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Config tunes one cache instance.
type Config struct {
	// TTL bounds entry lifetime. Zero falls back to a minute.
	TTL time.Duration
	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration
}

// Cache is a typed key→value cache with per-entry TTL.
type Cache[T any] struct {
	c   *gocache.Cache
	ttl time.Duration
}

// New creates a Cache.
func New[T any](cfg Config) *Cache[T] {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * cfg.TTL
	}
	return &Cache[T]{
		c:   gocache.New(cfg.TTL, cfg.CleanupInterval),
		ttl: cfg.TTL,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[T]) Get(key string) (T, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Set stores v under key with the default TTL.
func (c *Cache[T]) Set(key string, v T) {
	c.c.Set(key, v, c.ttl)
}

// Del removes key. Missing keys are ignored.
func (c *Cache[T]) Del(key string) {
	c.c.Delete(key)
}
