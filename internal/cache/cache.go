// Package cache provides a bounded in-memory TTL cache.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache is a size-bounded map whose entries expire after a per-entry TTL.
// When full, the least recently used entry is evicted; with touch disabled
// recency is insertion order, so the oldest entry goes first.
// Safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	maxSize int
	touch   bool
	order   *list.List
	items   map[string]*list.Element
	now     func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	touch bool
	now   func() time.Time
}

// WithLRUTouch moves an entry to the front on every hit.
func WithLRUTouch() Option {
	return func(o *options) { o.touch = true }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache holding at most maxSize entries.
func New[V any](maxSize int, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[V]{
		maxSize: maxSize,
		touch:   o.touch,
		order:   list.New(),
		items:   make(map[string]*list.Element, maxSize),
		now:     o.now,
	}
}

// Get returns the value for key if present and not expired. Expired
// entries are removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[V])
	if !c.now().Before(e.expiresAt) {
		c.removeElement(el)
		return zero, false
	}
	if c.touch {
		c.order.MoveToFront(el)
	}
	return e.value, true
}

// Set stores value under key for ttl, replacing any previous value.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

// Len returns the number of stored entries, expired ones included until
// they are touched or evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry[V]).expiresAt) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *Cache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

// Run purges expired entries every interval until ctx is done. A
// non-positive interval returns immediately.
func (c *Cache[V]) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
