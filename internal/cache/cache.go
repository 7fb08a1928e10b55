package cache

import (
	"strings"
	"sync"
	"time"
)

// Clock abstracts time.Now so cache expiry is testable
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a TTL cache. It is passed to services explicitly rather than held
// as a package-level singleton, and supports prefix invalidation so a write
// can drop every derived entry for one key family.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	clock Clock
}

// New creates a Cache with the given default TTL
func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, realClock{})
}

// NewWithClock creates a Cache with an injectable clock
func NewWithClock(ttl time.Duration, clock Clock) *Cache {
	return &Cache{
		items: make(map[string]entry),
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value for key, if present and not expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key with the default TTL
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.items[key] = entry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes every entry whose key starts with the given prefix and
// returns the number of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept expired ones
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
