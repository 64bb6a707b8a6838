// Package cache provides a keyed compute-once result cache. Expensive
// analysis steps (grid interpolation, model runs) register their work
// under a content-derived key; concurrent requests for the same key share
// one computation instead of racing.
package cache

import (
	"sync"
)

// call tracks one in-flight computation so later arrivals can wait on it.
type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// Cache memoizes computation results by string key. The zero value is not
// usable; construct with New.
type Cache struct {
	mu      sync.Mutex
	done    map[string]interface{}
	pending map[string]*call

	hits   uint64
	misses uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		done:    make(map[string]interface{}),
		pending: make(map[string]*call),
	}
}

// GetOrCompute returns the cached value for key, computing it with fn on
// first use. Concurrent callers with the same key block until the first
// caller's fn returns and then share its result. A failed computation is
// not cached, so a later call retries.
func (c *Cache) GetOrCompute(key string, fn func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if v, ok := c.done[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	if cl, ok := c.pending[key]; ok {
		c.hits++
		c.mu.Unlock()
		cl.wg.Wait()
		return cl.val, cl.err
	}
	c.misses++
	cl := &call{}
	cl.wg.Add(1)
	c.pending[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = fn()
	cl.wg.Done()

	c.mu.Lock()
	delete(c.pending, key)
	if cl.err == nil {
		c.done[key] = cl.val
	}
	c.mu.Unlock()
	return cl.val, cl.err
}

// Get returns the completed value for key, if present. It does not wait
// on in-flight computations.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.done[key]
	return v, ok
}

// Invalidate drops the completed entry for key, if any. In-flight
// computations are unaffected and will store their result when done.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.done, key)
}

// Clear drops every completed entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = make(map[string]interface{})
}

// Len reports the number of completed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}

// Counters reports cumulative hit and miss counts, for diagnostics.
func (c *Cache) Counters() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
