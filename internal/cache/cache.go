// Package cache provides a size-bounded TTL key/value store. The hub holds
// one instance per data kind (vehicle snapshots, battery state, station
// searches), each with its own TTL and capacity.
package cache

import (
	"sync"
	"time"

	"evhub/internal/clock"
)

// Stats reports cache effectiveness counters
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL-bounded key/value store. Eviction on capacity overflow
// removes the oldest-inserted entry; exact LRU is deliberately not attempted.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	order   []string // insertion order, oldest first
	ttl     time.Duration
	maxSize int
	clock   clock.Clock

	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache with the given TTL and capacity bound.
// A nil clk falls back to the system clock.
func New[V any](ttl time.Duration, maxSize int, clk clock.Clock) *Cache[V] {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clk,
	}
}

// Get returns the value for key if present and not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the oldest entry if the cache is full
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	if _, exists := c.entries[key]; exists {
		// Overwrite keeps the original insertion slot
		c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	c.order = append(c.order, key)
}

// Delete removes key from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear removes all entries
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.order = nil
}

// Stats returns a snapshot of the cache counters
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache[V]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[V]) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			c.evictions++
			return
		}
	}
}
