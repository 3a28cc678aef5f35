package compresscache

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/sandrolain/outputcache"
)

// SnappyCache wraps a Storage backend with automatic Snappy compression of
// each entry's body.
type SnappyCache struct {
	*baseCompressCache
}

// SnappyConfig holds the configuration for Snappy compression.
type SnappyConfig struct {
	// Storage is the underlying cache backend. Required.
	Storage outputcache.Storage
}

// NewSnappy creates a SnappyCache wrapping config.Storage.
func NewSnappy(config SnappyConfig) (*SnappyCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: Storage cannot be nil")
	}
	return &SnappyCache{baseCompressCache: newBaseCompressCache(config.Storage, Snappy)}, nil
}

var _ outputcache.Storage = (*SnappyCache)(nil)

func (c *SnappyCache) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCache) decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return decompressed, nil
}

func (c *SnappyCache) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	return c.get(ctx, key, c.decompress)
}

func (c *SnappyCache) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	return c.set(ctx, key, entry, ttl, c.compress)
}

// Stats returns compression statistics.
func (c *SnappyCache) Stats() Stats {
	return c.stats()
}
