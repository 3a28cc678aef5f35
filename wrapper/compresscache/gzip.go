package compresscache

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sandrolain/outputcache"
)

// GzipCache wraps a Storage backend with automatic gzip compression of
// each entry's body.
type GzipCache struct {
	*baseCompressCache
	level int
}

// GzipConfig holds the configuration for Gzip compression.
type GzipConfig struct {
	// Storage is the underlying cache backend. Required.
	Storage outputcache.Storage
	// Level is the compression level (-2 to 9). Default: gzip.DefaultCompression.
	Level int
}

// NewGzip creates a GzipCache wrapping config.Storage.
func NewGzip(config GzipConfig) (*GzipCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: Storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = gzip.DefaultCompression
	}
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", config.Level)
	}

	return &GzipCache{
		baseCompressCache: newBaseCompressCache(config.Storage, Gzip),
		level:             config.Level,
	}, nil
}

var _ outputcache.Storage = (*GzipCache)(nil)

func (c *GzipCache) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer creation failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipCache) decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close() //nolint:errcheck // read error, if any, already surfaced below

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return decompressed, nil
}

func (c *GzipCache) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	return c.get(ctx, key, c.decompress)
}

func (c *GzipCache) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	return c.set(ctx, key, entry, ttl, c.compress)
}

// Stats returns compression statistics.
func (c *GzipCache) Stats() Stats {
	return c.stats()
}
