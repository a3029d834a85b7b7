// Package cache provides the memoization layers of the govel engine.
//
// Two kinds of cache live here:
//   - Cache: a thread-safe bounded LRU, used for compiled call arguments
//     (the subexpression cache) and for compiled expressions keyed by source.
//   - AccessorCache: the read, write and method tables that map an owner type
//     and a member signature to a resolved member.
//
// Every entry is advisory. A miss or an eviction only costs a recomputation.
//
// # Example
//
//	c := cache.New[string, int](1024)
//	v, err := c.GetOrCompute("key", compute)
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is used when New receives a non-positive capacity.
const DefaultCapacity = 256

// Stats is a point-in-time view of a Cache.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type slot[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a bounded LRU map safe for concurrent use. Reads promote the
// entry; inserting past capacity drops the least recently used one.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	limit int
	order *list.List // front is most recent
	index map[K]*list.Element

	hits, misses, evictions atomic.Uint64
}

// New returns an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		limit: capacity,
		order: list.New(),
		index: make(map[K]*list.Element, capacity),
	}
}

// Get returns the value cached under key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	el, ok := c.index[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	v := el.Value.(*slot[K, V]).value
	c.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Set stores value under key, replacing any previous value.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*slot[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.limit {
		c.removeLocked(c.order.Back())
		c.evictions.Add(1)
	}
	c.index[key] = c.order.PushFront(&slot[K, V]{key: key, value: value})
}

// GetOrCompute returns the cached value for key, calling compute and
// storing its result on a miss. Failed computations are not stored.
// Concurrent misses on one key may each call compute; the last store wins.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Capacity returns the entry limit.
func (c *Cache[K, V]) Capacity() int {
	return c.limit
}

// Invalidate drops key if present.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.removeLocked(el)
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.index)
}

// Stats returns the current occupancy and lifetime counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Capacity:  c.limit,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *Cache[K, V]) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.index, el.Value.(*slot[K, V]).key)
}
