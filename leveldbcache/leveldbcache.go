// Package leveldbcache provides an outputcache.Storage backed by
// github.com/syndtr/goleveldb/leveldb, an embedded key/value store with no
// external dependencies — useful when a process wants persistent caching
// without standing up a separate service.
package leveldbcache

import (
	"context"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/sandrolain/outputcache"
)

// Storage is an outputcache.Storage backed by an embedded leveldb database.
type Storage struct {
	db *leveldb.DB
}

var _ outputcache.Storage = (*Storage)(nil)

// New opens (or creates) a leveldb database at path.
func New(path string) (*Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbcache: opening %q: %w", path, err)
	}
	return &Storage{db: db}, nil
}

// NewWithDB wraps an already-opened leveldb database.
func NewWithDB(db *leveldb.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Get(_ context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbcache: get %q: %w", key, err)
	}

	entry, expiresAt, err := outputcache.UnmarshalCacheEntryWithExpiry(data)
	if err != nil {
		return nil, false, fmt.Errorf("leveldbcache: decoding %q: %w", key, err)
	}
	if time.Now().After(expiresAt) {
		//nolint:errcheck // best-effort eager cleanup; next write overwrites regardless
		_ = s.db.Delete([]byte(key), nil)
		return nil, false, nil
	}
	return entry, true, nil
}

// Set implements outputcache.Storage. leveldb has no native expiration, so
// ttl is encoded alongside the entry and checked lazily on Get.
func (s *Storage) Set(_ context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntryWithExpiry(entry, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("leveldbcache: encoding %q: %w", key, err)
	}
	if err := s.db.Put([]byte(key), data, nil); err != nil {
		return fmt.Errorf("leveldbcache: set %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}
