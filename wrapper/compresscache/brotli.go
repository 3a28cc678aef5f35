package compresscache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/sandrolain/outputcache"
)

// BrotliCache wraps a Storage backend with automatic Brotli compression of
// each entry's body.
type BrotliCache struct {
	*baseCompressCache
	level int
}

// BrotliConfig holds the configuration for Brotli compression.
type BrotliConfig struct {
	// Storage is the underlying cache backend. Required.
	Storage outputcache.Storage
	// Level is the compression level (0 to 11). Default: 6.
	Level int
}

// NewBrotli creates a BrotliCache wrapping config.Storage.
func NewBrotli(config BrotliConfig) (*BrotliCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: Storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = 6
	}
	if config.Level < 0 || config.Level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", config.Level)
	}

	return &BrotliCache{
		baseCompressCache: newBaseCompressCache(config.Storage, Brotli),
		level:             config.Level,
	}, nil
}

var _ outputcache.Storage = (*BrotliCache)(nil)

func (c *BrotliCache) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("brotli write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *BrotliCache) decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read failed: %w", err)
	}
	return decompressed, nil
}

func (c *BrotliCache) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	return c.get(ctx, key, c.decompress)
}

func (c *BrotliCache) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	return c.set(ctx, key, entry, ttl, c.compress)
}

// Stats returns compression statistics.
func (c *BrotliCache) Stats() Stats {
	return c.stats()
}
