package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/budget"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func withClock[T any](l *LRUCache[T]) *fakeClock {
	c := &fakeClock{t: time.Unix(0, 0)}
	l.now = c.now
	return c
}

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	cache := NewLRUCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Get("key1")           // key2 is now least recently used
	cache.Set("key4", "value4") // evicts key2

	if _, found := cache.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := cache.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if cache.Size() != 3 {
		t.Errorf("expected size 3, got %d", cache.Size())
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	cache := NewLRUCache[string](2, time.Hour)
	cache.Set("k", "a")
	cache.Set("k", "b")
	if v, _ := cache.Get("k"); v != "b" || cache.Size() != 1 {
		t.Errorf("got %q size %d", v, cache.Size())
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	cache := NewLRUCache[string](100, 50*time.Millisecond)
	clock := withClock(cache)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clock.advance(60 * time.Millisecond)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if s := cache.Stats(); s.Hits != 1 || s.Misses != 1 || s.Size != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	cache := NewLRUCache[string](100, 50*time.Millisecond)
	clock := withClock(cache)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	clock.advance(30 * time.Millisecond)
	cache.Set("key3", "value3")
	clock.advance(30 * time.Millisecond)

	if removed := cache.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if _, found := cache.Get("key3"); !found {
		t.Error("key3 should survive cleanup")
	}
}

func TestManagerCleanNow(t *testing.T) {
	a := NewLRUCache[int](10, time.Millisecond)
	clock := withClock(a)
	a.Set("x", 1)
	clock.advance(time.Second)

	m := NewManager(nil)
	m.Register(a)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("expected 1 cleaned entry, got %d", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestWeekCache(t *testing.T) {
	c := NewWeekCache(10, time.Hour)
	weeks := []budget.WeekSummary{{Limit: decimal.NewFromInt(100)}}

	c.Set("ana", 2024, 5, 3, weeks)
	weeks[0].Limit = decimal.Zero

	got, ok := c.Get("ana", 2024, 5, 3)
	if !ok || !got[0].Limit.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cached value was mutated or missing: %+v %v", got, ok)
	}
	if _, ok := c.Get("ana", 2024, 5, 4); ok {
		t.Error("a newer revision must miss")
	}
	if _, ok := c.Get("bea", 2024, 5, 3); ok {
		t.Error("another user must miss")
	}

	c.Set("ana", 2024, 6, 3, weeks)
	c.Set("anabel", 2024, 6, 3, weeks)
	if n := c.Forget("ana"); n != 2 {
		t.Errorf("Forget removed %d entries, want 2", n)
	}
	if _, ok := c.Get("anabel", 2024, 6, 3); !ok {
		t.Error("Forget must not touch users sharing a prefix")
	}
}

func TestWeekCacheForgetSeparatorInUser(t *testing.T) {
	c := NewWeekCache(10, time.Hour)
	weeks := []budget.WeekSummary{{Limit: decimal.NewFromInt(1)}}

	c.Set("a", 2024, 5, 1, weeks)
	c.Set("a|2024-05", 2024, 6, 1, weeks)
	c.Set("a%7C", 2024, 6, 1, weeks)

	if n := c.Forget("a"); n != 1 {
		t.Errorf("Forget removed %d entries, want 1", n)
	}
	if _, ok := c.Get("a|2024-05", 2024, 6, 1); !ok {
		t.Error("a user containing the separator must survive another user's Forget")
	}
	if n := c.Forget("a|2024-05"); n != 1 {
		t.Errorf("Forget removed %d entries, want 1", n)
	}
	if _, ok := c.Get("a%7C", 2024, 6, 1); !ok {
		t.Error("an already escaped user must not collide")
	}
}

// BenchmarkLRUCache benchmarks cache performance
func BenchmarkLRUCache(b *testing.B) {
	cache := NewLRUCache[[]budget.WeekSummary](1000, time.Hour)
	weeks := make([]budget.WeekSummary, 5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			cache.Set("bench-key", weeks)
		} else {
			cache.Get("bench-key")
		}
	}
}
