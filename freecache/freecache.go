// Package freecache provides a high-performance, zero-GC-overhead
// outputcache.Storage backed by github.com/coocood/freecache.
//
// This backend is suitable for caching millions of entries with minimal GC
// overhead; it manages its own fixed-size ring buffer and evicts LRU entries
// once full, independent of the TTL passed to Set.
package freecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"

	"github.com/sandrolain/outputcache"
)

// Storage is an outputcache.Storage backed by an in-process freecache ring
// buffer.
type Storage struct {
	cache *freecache.Cache
}

var _ outputcache.SizedStorage = (*Storage)(nil)

// New creates a Storage with the given size in bytes. freecache enforces a
// 512KiB minimum.
//
// For large cache sizes, consider calling runtime/debug.SetGCPercent with a
// lower value to reduce GC overhead.
func New(size int) *Storage {
	return &Storage{cache: freecache.NewCache(size)}
}

func (s *Storage) Get(_ context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecache: get %q: %w", key, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(value)
	if err != nil {
		return nil, false, fmt.Errorf("freecache: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements outputcache.Storage. ttl is rounded up to whole seconds, as
// required by freecache's expireSeconds parameter; a ttl of 0 means "never
// expires" in freecache, so a sub-second ttl is rounded up to 1 to avoid
// accidentally pinning an entry forever.
func (s *Storage) Set(_ context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("freecache: encoding %q: %w", key, err)
	}

	seconds := int(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}

	if err := s.cache.Set([]byte(key), data, seconds); err != nil {
		return fmt.Errorf("freecache: set %q: %w", key, err)
	}
	return nil
}

// Len implements outputcache.SizedStorage.
func (s *Storage) Len() int {
	return int(s.cache.EntryCount())
}

// HitRate returns the ratio of cache hits to total lookups, exposed for
// diagnostics alongside the metrics package.
func (s *Storage) HitRate() float64 {
	return s.cache.HitRate()
}
