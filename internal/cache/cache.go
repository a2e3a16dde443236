// Package cache wraps ristretto behind the small surface the rest of the
// gateway needs: get, set, delete, flush, ping.
package cache

import (
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrUnhealthy is returned by Ping when a set/get roundtrip fails.
var ErrUnhealthy = errors.New("cache roundtrip failed")

// Flusher is anything that can drop all of its cached entries.
type Flusher interface {
	Flush()
}

// Cache is a TTL cache over ristretto. The zero value is not usable; create
// instances with New.
type Cache[V any] struct {
	r   *ristretto.Cache[string, V]
	ttl time.Duration
}

// New creates a cache whose entries expire after ttl. A ttl of zero means
// entries never expire.
func New[V any](ttl time.Duration) (*Cache[V], error) {
	r, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: 1e7,
		MaxCost:     1 << 30,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache[V]{r: r, ttl: ttl}, nil
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.r.Get(key)
}

// Set stores value under key with the cache's TTL. Admission is best-effort;
// a rejected set is not an error.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl > 0 {
		c.r.SetWithTTL(key, value, 1, c.ttl)
		return
	}
	c.r.Set(key, value, 1)
}

// Delete removes the value stored under key.
func (c *Cache[V]) Delete(key string) {
	c.r.Del(key)
}

// Flush drops all cached entries.
func (c *Cache[V]) Flush() {
	c.r.Clear()
}

// Wait blocks until pending writes are visible. Intended for tests and Ping.
func (c *Cache[V]) Wait() {
	c.r.Wait()
}

// Ping verifies the cache accepts and serves writes with a set/get roundtrip.
func (c *Cache[V]) Ping() error {
	var v V
	c.r.Set("__ping__", v, 1)
	c.r.Wait()
	if _, ok := c.r.Get("__ping__"); !ok {
		return ErrUnhealthy
	}
	c.r.Del("__ping__")
	return nil
}

// Close releases the cache's resources.
func (c *Cache[V]) Close() {
	c.r.Close()
}
