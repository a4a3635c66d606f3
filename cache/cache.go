// Package cache provides a generic, thread-safe LRU cache whose entries
// remember when they were stored.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a generic thread-safe LRU cache with built-in metrics.
// Every entry carries its stored-at time so readers can apply a freshness
// floor. A capacity <= 0 makes the cache unbounded.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*list.Element
	order    *list.List // of *entry[K, V], most recent first
	capacity int
	now      func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
	stale  atomic.Uint64
	evicts atomic.Uint64
	sets   atomic.Uint64
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return NewWithClock[K, V](capacity, time.Now)
}

// NewWithClock creates a cache that stamps Set entries using now.
func NewWithClock[K comparable, V any](capacity int, now func() time.Time) *Cache[K, V] {
	if now == nil {
		now = time.Now
	}
	hint := capacity
	if hint <= 0 {
		hint = 16
	}
	return &Cache[K, V]{
		items:    make(map[K]*list.Element, hint),
		order:    list.New(),
		capacity: capacity,
		now:      now,
	}
}

// Get returns the value for key regardless of its age.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	e, ok := c.touch(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetFresh returns the value for key only if it was stored at or after
// floor. An older entry counts as stale and stays until overwritten.
func (c *Cache[K, V]) GetFresh(key K, floor time.Time) (V, bool) {
	var zero V
	e, ok := c.touch(key)
	if !ok {
		return zero, false
	}
	if e.storedAt.Before(floor) {
		c.stale.Add(1)
		return zero, false
	}
	return e.value, true
}

// touch finds key and marks it most recently used.
func (c *Cache[K, V]) touch(key K) (entry[K, V], bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	var e entry[K, V]
	if ok {
		c.order.MoveToFront(el)
		e = *el.Value.(*entry[K, V])
	}
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e, ok
}

// Set stores value stamped with the cache clock.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetAt(key, value, c.now())
}

// SetAt stores value with an explicit stored-at time.
func (c *Cache[K, V]) SetAt(key K, value V, storedAt time.Time) {
	c.sets.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value, e.storedAt = value, storedAt
		c.order.MoveToFront(el)
		return
	}

	if c.capacity > 0 && len(c.items) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.items, oldest.Value.(*entry[K, V]).key)
			c.order.Remove(oldest)
			c.evicts.Add(1)
		}
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, storedAt: storedAt})
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats holds cache statistics.
type Stats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	Stale    uint64  `json:"stale"`
	Evicts   uint64  `json:"evicts"`
	Sets     uint64  `json:"sets"`
	HitRate  float64 `json:"hitRate"`
}

// Stats returns cache statistics. Stale reads count as hits of the lookup
// and are reported separately.
func (c *Cache[K, V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Size:     c.Len(),
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Stale:    c.stale.Load(),
		Evicts:   c.evicts.Load(),
		Sets:     c.sets.Load(),
		HitRate:  rate,
	}
}
