package resolve

import (
	"sync"
	"time"
)

type cacheEntry struct {
	expiresAt time.Time
	value     Result
}

// Cache is a bounded TTL memoization layer for resolved searches. Eviction
// is time-based on every access and insertion-order-based once the capacity
// ceiling is exceeded. A TTL of zero or less disables it entirely. Purely in
// memory, rebuilt empty on restart.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	entries  map[string]cacheEntry
	order    []string
}

const DefaultCacheCapacity = 500

func NewCache(ttl time.Duration, capacity int, now func() time.Time) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		now:      now,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(key string) (Result, bool) {
	if c.ttl <= 0 {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	return entry.value, true
}

func (c *Cache) Set(key string, value Result) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	if _, exists := c.entries[key]; exists {
		c.dropFromOrder(key)
	}
	c.entries[key] = cacheEntry{expiresAt: c.now().Add(c.ttl), value: value}
	c.order = append(c.order, key)

	for len(c.entries) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) prune() {
	now := c.now()
	kept := c.order[:0]
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if !entry.expiresAt.After(now) {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

func (c *Cache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
