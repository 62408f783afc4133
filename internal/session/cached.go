package session

import (
	"context"
	"sync"
	"time"

	"ledgerlite/internal/cache"
)

type cachedValue struct {
	value string
	ok    bool
}

// CachedBackend fronts a slower Backend with an LRU read cache. Entries are
// dropped on every local write and on Invalidate, which the Hub calls when
// another instance reports a change.
//
// A miss fill is only stored when no write or invalidation happened while the
// inner read was in flight, so a slow read cannot bring back a deleted value.
type CachedBackend struct {
	inner Backend
	lru   *cache.LRUCache[cachedValue]

	mu  sync.Mutex
	gen uint64
}

var (
	_ Backend     = (*CachedBackend)(nil)
	_ Invalidator = (*CachedBackend)(nil)
)

func NewCachedBackend(inner Backend, maxEntries int, ttl time.Duration) *CachedBackend {
	return &CachedBackend{
		inner: inner,
		lru:   cache.NewLRUCache[cachedValue](maxEntries, ttl),
	}
}

// Cleaner exposes the underlying LRU so it can be registered for cleanup.
func (c *CachedBackend) Cleaner() cache.Cleaner {
	return c.lru
}

func cacheKey(browserID, key string) string {
	return browserID + "\x00" + key
}

func (c *CachedBackend) Load(ctx context.Context, browserID, key string) (string, bool, error) {
	ck := cacheKey(browserID, key)
	if v, found := c.lru.Get(ck); found {
		return v.value, v.ok, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, ok, err := c.inner.Load(ctx, browserID, key)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lru.Set(ck, cachedValue{value: v, ok: ok})
	}
	c.mu.Unlock()
	return v, ok, nil
}

func (c *CachedBackend) Save(ctx context.Context, browserID, key, value string) error {
	err := c.inner.Save(ctx, browserID, key, value)
	c.drop(func() { c.lru.Delete(cacheKey(browserID, key)) })
	return err
}

func (c *CachedBackend) Delete(ctx context.Context, browserID, key string) error {
	err := c.inner.Delete(ctx, browserID, key)
	c.drop(func() { c.lru.Delete(cacheKey(browserID, key)) })
	return err
}

func (c *CachedBackend) Clear(ctx context.Context, browserID string) error {
	err := c.inner.Clear(ctx, browserID)
	c.Invalidate(browserID)
	return err
}

func (c *CachedBackend) Invalidate(browserID string) {
	c.drop(func() { c.lru.DeletePrefix(browserID + "\x00") })
}

// drop evicts entries and bumps the generation under one lock.
func (c *CachedBackend) drop(evict func()) {
	c.mu.Lock()
	c.gen++
	evict()
	c.mu.Unlock()
}
