// Package prometheus provides a Storage wrapper that records per-backend
// operation metrics via outputcache/metrics, independent of the
// middleware-level request metrics recorded by Middleware itself. Useful
// when a deployment stacks several Storage wrappers (resilience,
// compresscache, multicache...) and wants to see where time is actually
// spent.
package prometheus

import (
	"context"
	"time"

	"github.com/sandrolain/outputcache"
	"github.com/sandrolain/outputcache/metrics"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// InstrumentedStorage wraps an outputcache.Storage, recording get/set
// operation counts and durations through a metrics.Collector.
type InstrumentedStorage struct {
	underlying outputcache.Storage
	collector  metrics.Collector
	backend    string // backend name: "memory", "redis", "leveldb", etc.
}

var _ outputcache.Storage = (*InstrumentedStorage)(nil)

// NewInstrumentedStorage wraps underlying, tagging every recorded metric
// with backend (e.g. "redis", "disk", "leveldb"). If collector is nil,
// metrics.DefaultCollector is used.
func NewInstrumentedStorage(underlying outputcache.Storage, backend string, collector metrics.Collector) *InstrumentedStorage {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedStorage{underlying: underlying, collector: collector, backend: backend}
}

func (s *InstrumentedStorage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	start := time.Now()
	entry, ok, err := s.underlying.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	s.collector.RecordCacheOperation("get", s.backend, result, duration)

	return entry, ok, err
}

func (s *InstrumentedStorage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	start := time.Now()
	err := s.underlying.Set(ctx, key, entry, ttl)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	s.collector.RecordCacheOperation("set", s.backend, result, duration)

	return err
}
