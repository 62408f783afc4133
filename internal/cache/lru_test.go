package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", 3) // evicts b, the least recently used

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d ok=%v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size=%d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Millisecond)
	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to be missing")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	time.Sleep(5 * time.Millisecond)
	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[bool](10, time.Minute)
	c.Set("b1\x00token", true)
	c.Set("b1\x00user", true)
	c.Set("b2\x00token", true)

	if n := c.DeletePrefix("b1\x00"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := c.Get("b2\x00token"); !ok {
		t.Fatalf("unrelated entry removed")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 0 {
		t.Fatalf("unexpected stats hits=%d misses=%d", hits, misses)
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	m := NewManager()
	m.Register("test", c)
	time.Sleep(5 * time.Millisecond)

	if got := m.Sweep()["test"]; got != 1 {
		t.Fatalf("expected 1 removal, got %d", got)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
