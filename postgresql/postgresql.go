// Package postgresql provides a PostgreSQL-backed outputcache.Storage, for
// deployments that already run Postgres and want one fewer moving part than
// a dedicated cache service.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sandrolain/outputcache"
)

var (
	// ErrNilPool is returned when a nil pool is provided to NewWithPool.
	ErrNilPool = errors.New("postgresql: pool cannot be nil")
	// ErrNilConn is returned when a nil connection is provided to NewWithConn.
	ErrNilConn = errors.New("postgresql: connection cannot be nil")
)

const (
	// DefaultTableName is the default table name for cache storage.
	DefaultTableName = "outputcache_entries"
	// DefaultKeyPrefix is the default prefix for cache keys.
	DefaultKeyPrefix = "cache:"
)

// Storage is an outputcache.Storage that stores entries in a PostgreSQL
// table, either via a pgxpool.Pool or a single pgx.Conn.
type Storage struct {
	pool      *pgxpool.Pool
	conn      *pgx.Conn
	tableName string
	keyPrefix string
	timeout   time.Duration
}

var _ outputcache.Storage = (*Storage)(nil)

// Config holds the configuration for the PostgreSQL cache.
type Config struct {
	// TableName is the name of the table to store cache entries (default: "outputcache_entries").
	TableName string
	// KeyPrefix is the prefix added to all cache keys (default: "cache:").
	KeyPrefix string
	// Timeout bounds database operations when the caller's context has no
	// deadline (default: 5s).
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		TableName: DefaultTableName,
		KeyPrefix: DefaultKeyPrefix,
		Timeout:   5 * time.Second,
	}
}

func (s *Storage) cacheKey(key string) string {
	return s.keyPrefix + key
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Storage) exec(ctx context.Context, query string, args ...any) (pgconnCommandTag, error) {
	if s.pool != nil {
		return s.pool.Exec(ctx, query, args...)
	}
	return s.conn.Exec(ctx, query, args...)
}

func (s *Storage) queryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if s.pool != nil {
		return s.pool.QueryRow(ctx, query, args...)
	}
	return s.conn.QueryRow(ctx, query, args...)
}

// pgconnCommandTag aliases pgconn.CommandTag's return shape without
// importing pgconn directly just for the exec helper's return type.
type pgconnCommandTag = interface{ RowsAffected() int64 }

// Get implements outputcache.Storage, filtering out entries whose
// expires_at has passed.
func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + s.tableName + ` WHERE key = $1 AND expires_at > now()`
	err := s.queryRow(ctx, query, s.cacheKey(key)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresql: get %q: %w", key, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("postgresql: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements outputcache.Storage, upserting the row with an absolute
// expires_at so stale rows can be filtered (and periodically reaped) purely
// in SQL.
func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("postgresql: encoding %q: %w", key, err)
	}

	query := `
		INSERT INTO ` + s.tableName + ` (key, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET data = $2, created_at = $3, expires_at = $4
	`
	now := time.Now()
	if _, err := s.exec(ctx, query, s.cacheKey(key), data, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("postgresql: set %q: %w", key, err)
	}
	return nil
}

// ReapExpired deletes all rows whose expires_at has passed, for callers that
// want to run periodic maintenance instead of relying solely on lazy
// filtering in Get.
func (s *Storage) ReapExpired(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.exec(ctx, `DELETE FROM `+s.tableName+` WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("postgresql: reaping expired entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateTable creates the cache table if it doesn't exist.
func (s *Storage) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.exec(ctx, query); err != nil {
		return err
	}
	_, err := s.exec(ctx, `CREATE INDEX IF NOT EXISTS `+s.tableName+`_expires_at_idx ON `+s.tableName+` (expires_at)`)
	return err
}

// Close closes the connection pool or connection.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	} else if s.conn != nil {
		s.conn.Close(context.Background()) //nolint:errcheck // best effort cleanup
	}
}

// NewWithPool returns a Storage using the provided connection pool.
func NewWithPool(pool *pgxpool.Pool, config *Config) (*Storage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Storage{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
}

// NewWithConn returns a Storage using the provided connection.
func NewWithConn(conn *pgx.Conn, config *Config) (*Storage, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Storage{conn: conn, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
}

// New creates a Storage with a connection pool from the given connection
// string, creating the backing table if it doesn't already exist.
func New(ctx context.Context, connString string, config *Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}

	s := &Storage{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}
	if err := s.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}
