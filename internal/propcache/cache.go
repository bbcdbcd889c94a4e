// Package propcache implements a generic property cache with a
// pluggable eviction policy — a bounded entry count (LRU) or a byte
// budget (SizeBudget) — keyed by (scope, name). Internal state is a
// sharded concurrent map from key to (value, list position) plus a
// single LRU doubly-linked list guarded by one spinlock; the map is
// sharded so concurrent Get/Insert over disjoint keys don't contend,
// while the list lock is only ever held for an O(1) splice.
//
// Lock order: (1) acquire the list lock to push the new entry at the
// front, (2) update the map under its shard lock, (3) release the list
// lock, (4) evict outside both locks.
package propcache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Scope distinguishes node-scoped from edge-scoped property columns.
type Scope int

const (
	NodeScope Scope = iota
	EdgeScope
)

// Key identifies one cached column by scope and name.
type Key struct {
	Scope Scope
	Name  string
}

const shardCount = 16

func shardIndex(k Key) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte{byte(k.Scope)})
	_, _ = h.Write([]byte(k.Name))
	return h.Sum64() % shardCount
}

type entry[V any] struct {
	key  Key
	val  V
	size int64
	elem *list.Element
}

type shard[V any] struct {
	mu sync.Mutex
	m  map[Key]*entry[V]
}

// Cache is a generic, pluggable-eviction property cache.
type Cache[V any] struct {
	shards [shardCount]*shard[V]

	spin spinlock
	lru  *list.List

	maxEntries int
	maxBytes   int64
	sizeOf     func(V) int64
	onEvict    func(Key)

	entryCount atomic.Int64
	byteCount  atomic.Int64
}

func newBase[V any](onEvict func(Key)) *Cache[V] {
	c := &Cache[V]{lru: list.New(), onEvict: onEvict}
	for i := range c.shards {
		c.shards[i] = &shard[V]{m: make(map[Key]*entry[V])}
	}
	return c
}

// NewLRU builds a cache bounded by entry count.
func NewLRU[V any](maxEntries int, onEvict func(Key)) *Cache[V] {
	c := newBase[V](onEvict)
	c.maxEntries = maxEntries
	return c
}

// NewSizeBudget builds a cache bounded by total byte cost, computed per
// value via sizeOf.
func NewSizeBudget[V any](maxBytes int64, sizeOf func(V) int64, onEvict func(Key)) *Cache[V] {
	c := newBase[V](onEvict)
	c.maxBytes = maxBytes
	c.sizeOf = sizeOf
	return c
}

func (c *Cache[V]) shardFor(k Key) *shard[V] {
	return c.shards[shardIndex(k)]
}

// Contains reports whether k is present, without touching LRU order.
func (c *Cache[V]) Contains(k Key) bool {
	sh := c.shardFor(k)
	sh.mu.Lock()
	_, ok := sh.m[k]
	sh.mu.Unlock()
	return ok
}

// Get locates k via the sharded map, splices it to the front of the LRU
// list under the list spinlock, and returns its value.
func (c *Cache[V]) Get(k Key) (V, bool) {
	sh := c.shardFor(k)
	sh.mu.Lock()
	e, ok := sh.m[k]
	sh.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}

	c.spin.Lock()
	c.lru.MoveToFront(e.elem)
	c.spin.Unlock()

	return e.val, true
}

// Insert adds or replaces the value for k, then runs eviction. Lock
// order: list lock first (push front), then the shard lock (update
// map) while still holding the list lock, then release the list lock;
// eviction happens after both locks are released. The map update must
// happen before the list lock is released so a concurrent Get or
// eviction never observes the new LRU entry without its map entry, or
// the reverse.
func (c *Cache[V]) Insert(k Key, v V) {
	var size int64
	if c.sizeOf != nil {
		size = c.sizeOf(v)
	}
	newEntry := &entry[V]{key: k, val: v, size: size}
	sh := c.shardFor(k)

	c.spin.Lock()
	newEntry.elem = c.lru.PushFront(newEntry)
	sh.mu.Lock()
	old, existed := sh.m[k]
	sh.m[k] = newEntry
	sh.mu.Unlock()
	if existed {
		c.lru.Remove(old.elem)
	}
	c.spin.Unlock()

	c.entryCount.Add(1)
	c.byteCount.Add(size)

	if existed {
		c.entryCount.Add(-1)
		c.byteCount.Add(-old.size)
	}

	c.evictIfNecessary()
}

// Remove deletes k if present and reports whether it was. Unlike
// eviction, it never invokes onEvict — callers use it when they are
// the ones discarding the value (e.g. an explicit unload), not when
// capacity pressure forces the choice.
func (c *Cache[V]) Remove(k Key) bool {
	sh := c.shardFor(k)
	sh.mu.Lock()
	e, ok := sh.m[k]
	if ok {
		delete(sh.m, k)
	}
	sh.mu.Unlock()
	if !ok {
		return false
	}

	c.spin.Lock()
	c.lru.Remove(e.elem)
	c.spin.Unlock()

	c.entryCount.Add(-1)
	c.byteCount.Add(-e.size)
	return true
}

// Len reports the number of entries currently cached.
func (c *Cache[V]) Len() int { return int(c.entryCount.Load()) }

// Bytes reports the accumulated byte cost of all cached entries, only
// meaningful under the SizeBudget policy.
func (c *Cache[V]) Bytes() int64 { return c.byteCount.Load() }

func (c *Cache[V]) overCapacity() bool {
	if c.maxEntries > 0 {
		return c.entryCount.Load() > int64(c.maxEntries)
	}
	if c.maxBytes > 0 {
		return c.byteCount.Load() > c.maxBytes
	}
	return false
}

// evictIfNecessary evicts from the LRU tail until the configured policy
// is satisfied again.
func (c *Cache[V]) evictIfNecessary() {
	for c.overCapacity() {
		c.spin.Lock()
		back := c.lru.Back()
		if back == nil {
			c.spin.Unlock()
			return
		}
		c.lru.Remove(back)
		c.spin.Unlock()

		victim := back.Value.(*entry[V])
		sh := c.shardFor(victim.key)
		sh.mu.Lock()
		delete(sh.m, victim.key)
		sh.mu.Unlock()

		c.entryCount.Add(-1)
		c.byteCount.Add(-victim.size)

		if c.onEvict != nil {
			c.onEvict(victim.key)
		}
	}
}
