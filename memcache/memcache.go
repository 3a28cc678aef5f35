//go:build !appengine

// Package memcache provides a memcache-backed outputcache.Storage
// implementation, via bradfitz/gomemcache.
//
// The build constraint excludes this file from App Engine builds; the
// package provides no App Engine memcache implementation.
package memcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/sandrolain/outputcache"
)

// keyPrefix avoids collision with other data stored in the same memcache
// instance.
const keyPrefix = "outputcache:"

// Storage is an outputcache.Storage backed by one or more memcache servers.
type Storage struct {
	client *memcache.Client
}

var _ outputcache.Storage = (*Storage)(nil)

// New returns a Storage using the provided memcache server(s) with equal
// weight. If a server is listed multiple times, it gets a proportional
// amount of weight.
func New(server ...string) *Storage {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a Storage using the given memcache client.
func NewWithClient(client *memcache.Client) *Storage {
	return &Storage{client: client}
}

// Get implements outputcache.Storage. The context parameter is accepted for
// interface compliance; gomemcache has no per-call context support.
func (s *Storage) Get(_ context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	item, err := s.client.Get(keyPrefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcache: get %q: %w", key, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(item.Value)
	if err != nil {
		return nil, false, fmt.Errorf("memcache: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements outputcache.Storage. memcache expiration is seconds; ttl is
// rounded up to the nearest whole second, with a minimum of 1 so a
// sub-second TTL doesn't collapse to "never expires" (memcache treats 0 as
// no expiration).
func (s *Storage) Set(_ context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("memcache: encoding %q: %w", key, err)
	}

	seconds := int32(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}

	item := &memcache.Item{
		Key:        keyPrefix + key,
		Value:      data,
		Expiration: seconds,
	}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcache: set %q: %w", key, err)
	}
	return nil
}
