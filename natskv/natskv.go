// Package natskv provides an outputcache.Storage backed by a NATS
// JetStream Key/Value bucket.
//
// JetStream KV bucket TTL is bucket-wide and fixed at creation time, so it
// cannot track each entry's individually computed freshness lifetime; this
// package encodes a per-entry absolute expiry alongside the value and
// filters lazily on Get, using the bucket TTL only as a coarse backstop.
package natskv

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sandrolain/outputcache"
)

// Config holds the configuration for creating a NATS K/V-backed Storage.
type Config struct {
	// NATSUrl is the URL of the NATS server. If empty, defaults to nats.DefaultURL.
	NATSUrl string
	// Bucket is the name of the K/V bucket to use for caching. Required.
	Bucket string
	// Description is an optional description for the K/V bucket.
	Description string
	// BucketTTL bounds the bucket-wide maximum entry lifetime as a backstop;
	// per-entry TTLs passed to Set are always enforced independently via the
	// encoded expiry, whichever is sooner. Zero means no bucket-level backstop.
	BucketTTL time.Duration
	// NATSOptions are additional options passed to nats.Connect.
	NATSOptions []nats.Option
}

// Storage is an outputcache.Storage backed by a NATS JetStream KeyValue
// bucket.
type Storage struct {
	kv jetstream.KeyValue
	nc *nats.Conn // nil when constructed via NewWithKeyValue; Close becomes a no-op
}

var _ outputcache.Storage = (*Storage)(nil)

func storeKey(key string) string {
	return "outputcache_" + outputcache.HashKey(key)
}

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	entry, err := s.kv.Get(ctx, storeKey(key))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv: get %q: %w", key, err)
	}

	cacheEntry, expiresAt, err := outputcache.UnmarshalCacheEntryWithExpiry(entry.Value())
	if err != nil {
		return nil, false, fmt.Errorf("natskv: decoding %q: %w", key, err)
	}
	if time.Now().After(expiresAt) {
		//nolint:errcheck // best-effort eager cleanup
		_ = s.kv.Delete(ctx, storeKey(key))
		return nil, false, nil
	}
	return cacheEntry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntryWithExpiry(entry, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("natskv: encoding %q: %w", key, err)
	}
	if _, err := s.kv.Put(ctx, storeKey(key), data); err != nil {
		return fmt.Errorf("natskv: set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying NATS connection if it was created by New. A
// no-op when constructed via NewWithKeyValue, since the caller owns that
// connection's lifecycle.
func (s *Storage) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

// New connects to NATS, opens a JetStream context, and creates or updates
// the configured K/V bucket. The caller should call Close() when done.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("natskv: bucket name is required")
	}

	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connecting: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.BucketTTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: creating or updating bucket: %w", err)
	}

	return &Storage{kv: kv, nc: nc}, nil
}

// NewWithKeyValue returns a Storage using the given NATS JetStream KeyValue
// store, for callers that manage the NATS connection themselves.
func NewWithKeyValue(kv jetstream.KeyValue) *Storage {
	return &Storage{kv: kv}
}
