// Package redis provides a Redis-backed outputcache.Storage implementation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sandrolain/outputcache"
)

// keyPrefix avoids collisions with other data stored in the same Redis
// database.
const keyPrefix = "outputcache:"

// Config holds the configuration for creating a Redis-backed Storage.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string
	// Password authenticates to Redis. Optional.
	Password string
	// DB selects the Redis database number. Optional, defaults to 0.
	DB int
	// PoolSize bounds the number of connections in the pool. Optional.
	PoolSize int
	// DialTimeout bounds connection establishment. Optional.
	DialTimeout time.Duration
}

// Storage is an outputcache.Storage backed by a Redis server.
type Storage struct {
	client *goredis.Client
}

var _ outputcache.Storage = (*Storage)(nil)

// New creates a Storage and verifies connectivity with a PING.
func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: Addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best effort cleanup after failed ping
		return nil, fmt.Errorf("redis: connecting: %w", err)
	}

	return &Storage{client: client}, nil
}

// NewWithClient wraps an already-constructed go-redis client, useful when
// the caller manages connection lifecycle and TLS/cluster configuration
// itself.
func NewWithClient(client *goredis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get %q: %w", key, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("redis: encoding %q: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.client.Close()
}
