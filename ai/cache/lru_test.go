package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Creation(t *testing.T) {
	testCases := []struct {
		name      string
		capacity  int
		ttl       time.Duration
		expectCap int
	}{
		{"default values", 0, 0, 1000},
		{"custom capacity", 500, 0, 500},
		{"both custom", 200, 15 * time.Minute, 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewLRU[string, int](tc.capacity, tc.ttl)
			assert.Equal(t, tc.expectCap, c.Capacity())
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestLRU_BasicSetGet(t *testing.T) {
	c := NewLRU[string, []float32](100, time.Minute)

	t.Run("set and get returns value", func(t *testing.T) {
		c.Set("k", []float32{1, 2, 3})
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, v)
	})

	t.Run("missing key returns false", func(t *testing.T) {
		_, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("update existing key", func(t *testing.T) {
		c.Set("u", []float32{1})
		c.Set("u", []float32{2})
		v, ok := c.Get("u")
		require.True(t, ok)
		assert.Equal(t, []float32{2}, v)
	})
}

func TestLRU_TTLExpiration(t *testing.T) {
	c := NewLRU[string, string](100, 50*time.Millisecond)

	c.Set("expiring", "v")
	_, ok := c.Get("expiring")
	assert.True(t, ok, "key should exist immediately after Set")

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("expiring")
	assert.False(t, ok, "key should be expired after TTL")

	t.Run("custom TTL overrides default", func(t *testing.T) {
		c.SetWithTTL("long", "v", 200*time.Millisecond)
		time.Sleep(60 * time.Millisecond)
		_, ok := c.Get("long")
		assert.True(t, ok)
	})
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" is the LRU victim.
	_, _ = c.Get("a")

	c.Set("d", 4)
	assert.Equal(t, 3, c.Len(), "cache must not exceed capacity")

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestLRU_NeverExceedsCapacity(t *testing.T) {
	c := NewLRU[int, int](10, time.Minute)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
		require.LessOrEqual(t, c.Len(), 10)
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string, int](10, time.Minute)
	c.Set("a", 1)

	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int, int](128, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (seed*31 + i) % 200
				c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 128)
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("hello"), HashKey("hello"))
	assert.NotEqual(t, HashKey("hello"), HashKey("hello "))
	assert.Len(t, HashKey(""), 32)
}

func TestLoadingCache_GetOrLoad(t *testing.T) {
	lru := NewLRU[string, []float32](10, time.Minute)
	lc := NewLoading(lru)

	var calls atomic.Int64
	load := func(context.Context) ([]float32, bool) {
		calls.Add(1)
		return []float32{0.5}, true
	}

	v, ok := lc.GetOrLoad(context.Background(), "k", load)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5}, v)

	// Second call is served from cache.
	_, ok = lc.GetOrLoad(context.Background(), "k", load)
	require.True(t, ok)
	assert.Equal(t, int64(1), calls.Load())
}

func TestLoadingCache_FailedLoadNotCached(t *testing.T) {
	lru := NewLRU[string, int](10, time.Minute)
	lc := NewLoading(lru)

	var calls atomic.Int64
	failing := func(context.Context) (int, bool) {
		calls.Add(1)
		return 0, false
	}

	_, ok := lc.GetOrLoad(context.Background(), "k", failing)
	assert.False(t, ok)
	_, ok = lc.GetOrLoad(context.Background(), "k", failing)
	assert.False(t, ok)
	assert.Equal(t, int64(2), calls.Load(), "failed loads must not be cached")
}

func TestLoadingCache_SingleFlight(t *testing.T) {
	lru := NewLRU[string, int](10, time.Minute)
	lc := NewLoading(lru)

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(context.Context) (int, bool) {
		calls.Add(1)
		close(started)
		<-release
		return 42, true
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = lc.GetOrLoad(context.Background(), "k", slow)
	}()
	<-started

	// Concurrent callers on the same key share the in-flight load.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := lc.GetOrLoad(context.Background(), "k", func(context.Context) (int, bool) {
				calls.Add(1)
				return 42, true
			})
			assert.True(t, ok)
			assert.Equal(t, 42, v)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses should share one load")
}
