package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sandrolain/govel/pkg/cache"
)

func TestCacheNew(t *testing.T) {
	c := cache.New[string, int](10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New[string, int](0)
	if got := c.Capacity(); got != cache.DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", cache.DefaultCapacity, got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New[string, *int](4)
	v := new(int)
	c.Set("a.b", v)
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	got, ok := c.Get("a.b")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != v {
		t.Fatal("expected same pointer")
	}
}

func TestCacheMiss(t *testing.T) {
	c := cache.New[string, int](4)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New[string, int](3)
	for i, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, i)
	}
	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal(`expected "a" to be evicted (LRU)`)
	}
	if _, ok := c.Get("d"); !ok {
		t.Fatal(`expected most-recently-inserted "d" to survive`)
	}
}

func TestCacheGetPromotes(t *testing.T) {
	c := cache.New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted after "a" was read`)
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal(`expected "a" to survive`)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := cache.New[string, int](4)
	c.Set("k", 1)
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after Invalidate")
	}
	c.Invalidate("never-set")
}

func TestCacheClear(t *testing.T) {
	c := cache.New[string, int](4)
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected 0 after Clear, got %d", got)
	}
}

func TestCacheGetOrCompute(t *testing.T) {
	c := cache.New[string, []string](4)
	callCount := 0
	compute := func() ([]string, error) {
		callCount++
		return []string{"x", "y"}, nil
	}

	v1, err := c.GetOrCompute("x, y", compute)
	if err != nil || len(v1) != 2 {
		t.Fatalf("first GetOrCompute: %v", err)
	}
	if callCount != 1 {
		t.Fatalf("expected 1 compute call, got %d", callCount)
	}

	if _, err := c.GetOrCompute("x, y", compute); err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if callCount != 1 {
		t.Fatalf("expected still 1 call (cached), got %d", callCount)
	}
}

func TestCacheGetOrComputeError(t *testing.T) {
	c := cache.New[string, int](4)
	boom := errors.New("boom")
	if _, err := c.GetOrCompute("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestCacheSetUpdate(t *testing.T) {
	c := cache.New[string, int](4)
	c.Set("k", 1)
	c.Set("k", 2) // overwrite
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if got != 2 {
		t.Fatalf("expected updated value, got %d", got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := cache.New[string, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*i)%32)
				if _, err := c.GetOrCompute(key, func() (int, error) { return i, nil }); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > c.Capacity() {
		t.Fatalf("cache grew past capacity: %d", c.Len())
	}
}

func TestCacheStats(t *testing.T) {
	c := cache.New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("zzz")
	c.Set("c", 3) // evicts "b"

	st := c.Stats()
	if st.Entries != 2 || st.Capacity != 2 {
		t.Fatalf("unexpected occupancy: %+v", st)
	}
	if st.Hits != 1 || st.Misses != 1 || st.Evictions != 1 {
		t.Fatalf("unexpected counters: %+v", st)
	}

	c.Clear()
	if st := c.Stats(); st.Entries != 0 || st.Hits != 1 {
		t.Fatalf("Clear should drop entries and keep counters: %+v", st)
	}
}
