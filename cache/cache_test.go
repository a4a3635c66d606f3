package cache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_Basic(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("'b' should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("'a' should still be cached")
	}
	if got := c.Stats().Evicts; got != 1 {
		t.Errorf("Evicts = %d; want 1", got)
	}
}

func TestCache_Unbounded(t *testing.T) {
	c := New[int, int](0)
	for i := 0; i < 100; i++ {
		c.Set(i, i)
	}
	if c.Len() != 100 {
		t.Errorf("Len() = %d; want 100", c.Len())
	}
}

func TestCache_GetFresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewWithClock[string, string](0, clock.Now)

	c.Set("k", "v1")
	storedAt := clock.Now()

	tests := []struct {
		name  string
		floor time.Time
		want  bool
	}{
		{"zero floor", time.Time{}, true},
		{"floor before store", storedAt.Add(-time.Hour), true},
		{"floor equal to store", storedAt, true},
		{"floor after store", storedAt.Add(time.Nanosecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := c.GetFresh("k", tt.floor)
			if ok != tt.want {
				t.Fatalf("GetFresh ok = %v; want %v", ok, tt.want)
			}
			if ok && v != "v1" {
				t.Errorf("GetFresh = %q; want v1", v)
			}
		})
	}

	// A stale entry stays in place until it is overwritten.
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
	if got := c.Stats().Stale; got != 1 {
		t.Errorf("Stale = %d; want 1", got)
	}

	clock.Advance(time.Minute)
	c.Set("k", "v2")
	if v, ok := c.GetFresh("k", storedAt.Add(time.Second)); !ok || v != "v2" {
		t.Errorf("GetFresh after overwrite = %q, %v; want v2, true", v, ok)
	}
}

func TestCache_SetAt(t *testing.T) {
	c := New[string, int](0)
	at := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

	c.SetAt("k", 7, at)

	if v, ok := c.GetFresh("k", at); !ok || v != 7 {
		t.Errorf("GetFresh(at) = %d, %v; want 7, true", v, ok)
	}
	if _, ok := c.GetFresh("k", at.Add(time.Second)); ok {
		t.Error("GetFresh after the stored-at time should miss")
	}
}

func TestCache_OverwriteKeepsSize(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	if c.Len() != 2 {
		t.Errorf("Len() = %d; want 2", c.Len())
	}
	if v, _ := c.Get("a"); v != 3 {
		t.Errorf("Get(a) = %d; want 3", v)
	}
	if got := c.Stats().Evicts; got != 0 {
		t.Errorf("Evicts = %d; want 0", got)
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d; want 1", stats.Misses)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d; want 1", stats.Sets)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("HitRate = %f; want ~0.667", stats.HitRate)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](100)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (g*500 + i) % 150
				c.Set(key, i)
				c.Get(key)
				c.GetFresh(key, time.Time{})
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d; exceeds capacity 100", c.Len())
	}
}

func BenchmarkCache_Get(b *testing.B) {
	c := New[int, int](1000)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(i % 1000)
	}
}

func BenchmarkCache_GetFresh(b *testing.B) {
	c := New[int, int](1000)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
	}
	floor := time.Now().Add(-time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetFresh(i%1000, floor)
	}
}
