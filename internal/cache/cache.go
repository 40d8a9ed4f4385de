// Package cache memoizes pure pipeline stages by content fingerprint.
//
// Keys are 64-bit xxhash digests of the stage input. Concurrent callers for
// the same key share one computation; failed computations are not stored.
package cache

import (
	"strconv"
	"sync"

	"github.com/KaramelBytes/edaloom-cli/internal/metrics"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// Cache maps content keys to computed values. The zero value is not usable;
// construct with New.
type Cache[V any] struct {
	name       string
	maxEntries int
	rec        *metrics.Recorder

	mu      sync.Mutex
	entries map[uint64]V
	order   []uint64 // insertion order for FIFO eviction

	group singleflight.Group
}

// New creates a cache reporting lookups under name. maxEntries <= 0 means
// unbounded. rec may be nil.
func New[V any](name string, maxEntries int, rec *metrics.Recorder) *Cache[V] {
	return &Cache[V]{
		name:       name,
		maxEntries: maxEntries,
		rec:        rec,
		entries:    make(map[uint64]V),
	}
}

// Get returns the stored value for key.
func (c *Cache[V]) Get(key uint64) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Do returns the memoized value for key or computes it with fn.
func (c *Cache[V]) Do(key uint64, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		c.rec.CacheRequest(c.name, true)
		return v, nil
	}
	c.rec.CacheRequest(c.name, false)
	res, err, _ := c.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		// another flight may have stored it between Get and Do
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		c.put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *Cache[V]) put(key uint64, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	for c.maxEntries > 0 && len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len reports the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]V)
	c.order = nil
}

// Key hashes a tag and a payload into a cache key. The tag separates
// otherwise identical payloads (e.g. the same bytes read as csv and tsv).
func Key(tag string, payload []byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(tag)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(payload)
	return d.Sum64()
}
