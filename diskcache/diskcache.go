// Package diskcache provides an outputcache.Storage that supplements an
// in-memory map with persistent on-disk storage via peterbourgon/diskv.
//
// diskv has no native expiration, so each entry is stored with its expiry
// time and Get treats an expired entry as absent, erasing its file. An
// expired entry that is never read again stays on disk until overwritten or
// removed with Delete; nothing here sweeps the directory.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/sandrolain/outputcache"
)

// Storage is an outputcache.Storage backed by a diskv store.
type Storage struct {
	d *diskv.Diskv
}

var _ outputcache.Storage = (*Storage)(nil)

// New returns a Storage that will store files under basePath, capped at a
// 100MB in-memory cache of recently accessed files (diskv's own LRU, not
// related to TTL).
func New(basePath string) *Storage {
	return &Storage{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv returns a Storage using the provided Diskv as underlying
// storage, for callers that need custom sharding or transform functions.
func NewWithDiskv(d *diskv.Diskv) *Storage {
	return &Storage{d: d}
}

func (s *Storage) Get(_ context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	data, err := s.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}

	entry, expiresAt, err := outputcache.UnmarshalCacheEntryWithExpiry(data)
	if err != nil {
		return nil, false, fmt.Errorf("diskcache: decoding %q: %w", key, err)
	}
	if time.Now().After(expiresAt) {
		_ = s.Delete(key)
		return nil, false, nil
	}
	return entry, true, nil
}

// Set implements outputcache.Storage. diskv has no native expiration, so ttl
// is encoded alongside the entry and checked lazily on Get.
func (s *Storage) Set(_ context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntryWithExpiry(entry, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("diskcache: encoding %q: %w", key, err)
	}
	if err := s.d.WriteStream(keyToFilename(key), bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("diskcache: set %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key, if present. Not part of
// outputcache.Storage, but useful for cache administration.
func (s *Storage) Delete(key string) error {
	//nolint:errcheck // file-not-found is acceptable
	_ = s.d.Erase(keyToFilename(key))
	return nil
}

func keyToFilename(key string) string {
	h := sha256.New()
	//nolint:errcheck // io.WriteString to hash.Hash never fails
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}
