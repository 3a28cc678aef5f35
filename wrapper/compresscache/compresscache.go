// Package compresscache wraps an outputcache.Storage backend with
// automatic compression of each entry's response body, to cut storage
// footprint and (for out-of-process backends) network bandwidth. Headers
// and status code are left untouched since they are typically small
// relative to the body.
//
// Supports multiple compression algorithms: gzip, brotli, and snappy.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sandrolain/outputcache"
)

// Algorithm identifies the compression algorithm used for a stored entry.
type Algorithm int

const (
	// Gzip uses gzip compression (good balance of compression and speed).
	Gzip Algorithm = iota
	// Brotli uses brotli compression (best compression ratio, slower).
	Brotli
	// Snappy uses snappy compression (fastest, lower compression ratio).
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics accumulated across Set calls.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// baseCompressCache provides the shared body-compression plumbing for each
// algorithm-specific wrapper below.
type baseCompressCache struct {
	underlying outputcache.Storage
	algorithm  Algorithm

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBaseCompressCache(underlying outputcache.Storage, algorithm Algorithm) *baseCompressCache {
	return &baseCompressCache{underlying: underlying, algorithm: algorithm}
}

// get fetches the entry and decompresses its body in place. The first byte
// of the stored body is a marker: 0 means stored uncompressed, otherwise
// (algorithm+1) names the algorithm used to compress it — which may differ
// from c.algorithm if the wrapper's configuration changed after entries
// were written.
func (c *baseCompressCache) get(ctx context.Context, key string, decompressFn decompressFunc) (*outputcache.CacheEntry, bool, error) {
	entry, hit, err := c.underlying.Get(ctx, key)
	if err != nil || !hit {
		return nil, hit, err
	}

	if len(entry.Body) == 0 {
		return entry, true, nil
	}

	marker := entry.Body[0]
	if marker == 0 {
		entry.Body = entry.Body[1:]
		return entry, true, nil
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := c.decompressWithAlgorithm(entry.Body[1:], storedAlgo, decompressFn)
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: decompressing %q (%s): %w", key, storedAlgo, err)
	}
	entry.Body = decompressed
	return entry, true, nil
}

func (c *baseCompressCache) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	return decompressAny(data, algorithm)
}

// decompressAny decodes data written by a differently-configured wrapper
// instance, so changing algorithms doesn't strand previously-written
// entries as undecodable.
func decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return (&GzipCache{baseCompressCache: &baseCompressCache{}}).decompress(data)
	case Brotli:
		return (&BrotliCache{baseCompressCache: &baseCompressCache{}}).decompress(data)
	case Snappy:
		return (&SnappyCache{baseCompressCache: &baseCompressCache{}}).decompress(data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %v", algorithm)
	}
}

// set compresses entry's body, prefixes it with the algorithm marker, and
// forwards the modified entry to the underlying backend. A compression
// failure falls back to storing the body uncompressed rather than failing
// the Set outright.
func (c *baseCompressCache) set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration, compressFn compressFunc) error {
	stored := *entry
	original := entry.Body

	compressed, err := compressFn(original)
	if err != nil {
		data := make([]byte, len(original)+1)
		data[0] = 0
		copy(data[1:], original)
		stored.Body = data
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(original)))
		return c.underlying.Set(ctx, key, &stored, ttl)
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(c.algorithm + 1)
	copy(data[1:], compressed)
	stored.Body = data

	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(original)))

	return c.underlying.Set(ctx, key, &stored, ttl)
}

func (c *baseCompressCache) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
