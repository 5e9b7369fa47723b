package csvfeed

import (
	"sync"
	"time"
)

// Cache stores the last good value of a feed.
type Cache[T any] interface {
	// Get returns the cached value, fresh or stale. ok is false when
	// nothing has been stored.
	Get() (items []T, ok bool)
	Set(items []T)
	// IsExpired reports whether the cached value is missing or past its TTL.
	IsExpired() bool
}

// MemoryCache is an in-process Cache with a fixed TTL.
type MemoryCache[T any] struct {
	mu       sync.RWMutex
	items    []T
	storedAt time.Time
	has      bool
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache[T any](ttl time.Duration) *MemoryCache[T] {
	return &MemoryCache[T]{ttl: ttl, now: time.Now}
}

func (c *MemoryCache[T]) Get() ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items, c.has
}

func (c *MemoryCache[T]) Set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.storedAt = c.now()
	c.has = true
}

func (c *MemoryCache[T]) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.has || c.now().Sub(c.storedAt) >= c.ttl
}
