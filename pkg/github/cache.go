package github

import (
	"sync/atomic"
	"time"
)

// DefaultCacheTTL is the freshness window for upstream fallback caches.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry[T any] struct {
	data      T
	timestamp time.Time
}

// Cache is a single-slot, time-boxed cache for upstream responses. It
// lives for the process lifetime and is injected into request handlers
// so tests can construct isolated instances.
//
// Writes are not serialized against each other: concurrent fills race on
// the slot and the losing write is simply overwritten, costing at most
// one extra upstream call. The slot is an atomic pointer swap rather
// than a mutex.
type Cache[T any] struct {
	ttl  time.Duration
	slot atomic.Pointer[cacheEntry[T]]
}

// NewCache creates a cache with the given freshness window. A zero or
// negative ttl falls back to DefaultCacheTTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache[T]{ttl: ttl}
}

// Get returns the cached value when it is still within the freshness
// window.
func (c *Cache[T]) Get() (T, bool) {
	entry := c.slot.Load()
	if entry == nil || time.Since(entry.timestamp) >= c.ttl {
		var zero T
		return zero, false
	}
	return entry.data, true
}

// GetStale returns the cached value regardless of age. Used for
// serve-stale-on-error when the upstream host is unreachable.
func (c *Cache[T]) GetStale() (T, bool) {
	entry := c.slot.Load()
	if entry == nil {
		var zero T
		return zero, false
	}
	return entry.data, true
}

// Put stores a value with the current timestamp.
func (c *Cache[T]) Put(data T) {
	c.slot.Store(&cacheEntry[T]{data: data, timestamp: time.Now()})
}
