package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// WriteOnce caches values that never change once observed, such as contract
// metadata. The first successful value for a key is kept for the lifetime of
// the cache; concurrent loads of the same key share one call and failed
// loads are not cached.
type WriteOnce[V any] struct {
	mu    sync.RWMutex
	items map[string]V
	group singleflight.Group

	hits   int64
	misses int64
}

func NewWriteOnce[V any]() *WriteOnce[V] {
	return &WriteOnce[V]{items: make(map[string]V)}
}

// Get returns the cached value for key, if any.
func (c *WriteOnce[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores value unless key is already present. It reports whether value
// was stored.
func (c *WriteOnce[V]) Put(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		return false
	}
	c.items[key] = value
	return true
}

// GetOrLoad returns the cached value or runs load once across all concurrent
// callers for key. The boolean reports a cache hit.
func (c *WriteOnce[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		v, _ = c.peek(key)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}

func (c *WriteOnce[V]) peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *WriteOnce[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns hit and miss counts for Get and GetOrLoad.
func (c *WriteOnce[V]) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
