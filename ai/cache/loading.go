package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadingCache wraps an LRU with single-flight loading: concurrent misses on
// the same key share one loader call instead of stampeding the backend.
type LoadingCache[V any] struct {
	lru   *LRU[string, V]
	group singleflight.Group
}

// NewLoading creates a loading cache over the given LRU.
func NewLoading[V any](lru *LRU[string, V]) *LoadingCache[V] {
	return &LoadingCache[V]{lru: lru}
}

// GetOrLoad returns the cached value for key, or invokes load once per key
// across concurrent callers. Loads reporting ok=false are not cached, so a
// transient backend failure does not poison the cache.
func (c *LoadingCache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, bool)) (V, bool) {
	if v, ok := c.lru.Get(key); ok {
		return v, true
	}

	type result struct {
		value V
		ok    bool
	}
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have filled the
		// entry between the miss and this execution.
		if v, ok := c.lru.Get(key); ok {
			return result{value: v, ok: true}, nil
		}
		value, ok := load(ctx)
		if ok {
			c.lru.Set(key, value)
		}
		return result{value: value, ok: ok}, nil
	})

	r, ok := v.(result)
	if !ok {
		var zero V
		return zero, false
	}
	return r.value, r.ok
}

// Stats returns the underlying LRU counters.
func (c *LoadingCache[V]) Stats() Stats {
	return c.lru.Stats()
}

// Remove drops a key from the underlying LRU.
func (c *LoadingCache[V]) Remove(key string) bool {
	return c.lru.Remove(key)
}
