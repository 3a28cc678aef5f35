// Package securecache wraps an outputcache.Storage to add SHA-256 key
// hashing (always enabled) and optional AES-256-GCM encryption of cached
// data, for backends where the underlying storage medium (disk, a shared
// Redis instance, cloud object storage) shouldn't see plaintext request
// URLs or response bodies.
package securecache

import (
	"context"
	"crypto/cipher"
	"fmt"
	"time"

	"github.com/sandrolain/outputcache"
)

// Storage wraps an outputcache.Storage, hashing every key and optionally
// encrypting every stored entry.
type Storage struct {
	underlying outputcache.Storage
	gcm        cipher.AEAD
}

var _ outputcache.Storage = (*Storage)(nil)

// Config holds the configuration for creating a Storage.
type Config struct {
	// Storage is the underlying cache backend to wrap. Required.
	Storage outputcache.Storage
	// Passphrase is the secret used to encrypt/decrypt cached data. If
	// empty, only key hashing is performed. Must stay consistent across
	// restarts, since it also derives the encryption key.
	Passphrase string
}

// New creates a Storage wrapping config.Storage. Keys are always hashed
// with SHA-256; if Passphrase is non-empty, entries are also encrypted
// with AES-256-GCM.
func New(config Config) (*Storage, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("securecache: Storage cannot be nil")
	}

	s := &Storage{underlying: config.Storage}
	if config.Passphrase != "" {
		gcm, err := outputcache.InitEncryption(config.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("securecache: initializing encryption: %w", err)
		}
		s.gcm = gcm
	}
	return s, nil
}

// IsEncrypted reports whether entries are encrypted at rest.
func (s *Storage) IsEncrypted() bool {
	return s.gcm != nil
}

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	hashedKey := outputcache.HashKey(key)
	wrapper, hit, err := s.underlying.Get(ctx, hashedKey)
	if err != nil || !hit {
		return nil, hit, err
	}

	raw, err := outputcache.Decrypt(s.gcm, wrapper.Body)
	if err != nil {
		return nil, false, fmt.Errorf("securecache: decrypting %q: %w", hashedKey, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("securecache: decoding %q: %w", hashedKey, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	hashedKey := outputcache.HashKey(key)

	raw, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("securecache: encoding %q: %w", hashedKey, err)
	}

	ciphertext, err := outputcache.Encrypt(s.gcm, raw)
	if err != nil {
		return fmt.Errorf("securecache: encrypting %q: %w", hashedKey, err)
	}

	wrapper := &outputcache.CacheEntry{Created: entry.Created, Body: ciphertext}
	return s.underlying.Set(ctx, hashedKey, wrapper, ttl)
}
