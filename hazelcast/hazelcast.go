// Package hazelcast provides a Hazelcast-backed outputcache.Storage.
package hazelcast

import (
	"context"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/sandrolain/outputcache"
)

func storeKey(key string) string {
	return "outputcache:" + key
}

// Storage is an outputcache.Storage backed by a Hazelcast distributed map.
type Storage struct {
	m *hazelcast.Map
}

var _ outputcache.Storage = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	val, err := s.m.Get(ctx, storeKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcast: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}

	data, ok := val.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("hazelcast: unexpected value type for %q", key)
	}

	entry, err := outputcache.UnmarshalCacheEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("hazelcast: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements outputcache.Storage, relying on Hazelcast's native
// per-entry TTL support (SetWithTTL) to expire entries.
func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("hazelcast: encoding %q: %w", key, err)
	}
	if err := s.m.SetWithTTL(ctx, storeKey(key), data, ttl); err != nil {
		return fmt.Errorf("hazelcast: set %q: %w", key, err)
	}
	return nil
}

// NewWithMap returns a Storage using the given Hazelcast map.
func NewWithMap(m *hazelcast.Map) *Storage {
	return &Storage{m: m}
}
