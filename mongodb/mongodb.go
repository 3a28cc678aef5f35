// Package mongodb provides a MongoDB-backed outputcache.Storage, using a
// per-document expireAt field and a TTL index so MongoDB reaps expired
// entries itself instead of requiring an external sweep.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sandrolain/outputcache"
)

// Config holds the configuration for creating a MongoDB-backed Storage.
type Config struct {
	// URI is the MongoDB connection URI (e.g., "mongodb://localhost:27017"). Required.
	URI string
	// Database is the name of the database to use for caching. Required.
	Database string
	// Collection is the name of the collection to use for caching. Optional, defaults to "outputcache_entries".
	Collection string
	// KeyPrefix is a prefix added to all cache keys. Optional, defaults to "cache:".
	KeyPrefix string
	// Timeout bounds database operations. Optional, defaults to 5 seconds.
	Timeout time.Duration
	// ClientOptions are additional options passed to mongo.Connect. Optional.
	ClientOptions *options.ClientOptions
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Collection: "outputcache_entries",
		KeyPrefix:  "cache:",
		Timeout:    5 * time.Second,
	}
}

// document is the on-disk shape of a cache entry.
type document struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	CreatedAt time.Time `bson:"createdAt"`
	ExpireAt  time.Time `bson:"expireAt"`
}

// Storage is an outputcache.Storage backed by a MongoDB collection.
type Storage struct {
	client     *mongo.Client // nil when constructed via NewWithClient; Close becomes a no-op
	collection *mongo.Collection
	keyPrefix  string
	timeout    time.Duration
}

var _ outputcache.Storage = (*Storage)(nil)

func (s *Storage) cacheKey(key string) string {
	return s.keyPrefix + key
}

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": s.cacheKey(key)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongodb: get %q: %w", key, err)
	}

	entry, err := outputcache.UnmarshalCacheEntry(doc.Data)
	if err != nil {
		return nil, false, fmt.Errorf("mongodb: decoding %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := outputcache.MarshalCacheEntry(entry)
	if err != nil {
		return fmt.Errorf("mongodb: encoding %q: %w", key, err)
	}

	now := time.Now()
	doc := document{
		Key:       s.cacheKey(key),
		Data:      data,
		CreatedAt: now,
		ExpireAt:  now.Add(ttl),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		return fmt.Errorf("mongodb: set %q: %w", key, err)
	}
	return nil
}

// Close disconnects from MongoDB. A no-op when Storage was constructed via
// NewWithClient, since the caller owns that client's lifecycle.
func (s *Storage) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// New connects to MongoDB and ensures the TTL index exists, based on
// config.URI/config.Database. The caller should call Close() when done.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb: URI is required")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("mongodb: database name is required")
	}
	config = withDefaults(config)

	clientOpts := options.Client().ApplyURI(config.URI)
	if config.ClientOptions != nil {
		clientOpts = config.ClientOptions.ApplyURI(config.URI)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, config.Timeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // best effort cleanup after failed ping
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	s := &Storage{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}
	if err := s.ensureTTLIndex(ctx); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // best effort cleanup after failed index creation
		return nil, fmt.Errorf("mongodb: creating TTL index: %w", err)
	}
	return s, nil
}

// NewWithClient returns a Storage using an already-connected MongoDB client,
// for callers that manage the connection lifecycle themselves.
func NewWithClient(ctx context.Context, client *mongo.Client, database, collection string, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("mongodb: client is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb: database name is required")
	}
	config = withDefaults(config)
	if collection == "" {
		collection = config.Collection
	}

	s := &Storage{
		collection: client.Database(database).Collection(collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}
	if err := s.ensureTTLIndex(ctx); err != nil {
		return nil, fmt.Errorf("mongodb: creating TTL index: %w", err)
	}
	return s, nil
}

func withDefaults(config Config) Config {
	defaults := DefaultConfig()
	if config.Collection == "" {
		config.Collection = defaults.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	return config
}

// ensureTTLIndex creates a TTL index on expireAt with expireAfterSeconds: 0,
// so MongoDB removes each document at the absolute instant stored in that
// field rather than at a single collection-wide offset.
func (s *Storage) ensureTTLIndex(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(0).
			SetName("outputcache_ttl"),
	}
	indexCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.collection.Indexes().CreateOne(indexCtx, indexModel)
	return err
}
