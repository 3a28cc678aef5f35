package outputcache

import (
	"log/slog"
	"time"

	"github.com/sandrolain/outputcache/metrics"
)

// Options holds the Middleware's configuration, built up by applying Option
// functions over a set of defaults. See §6 for the enumerated configuration
// surface.
type Options struct {
	storage Storage
	policy  Policy

	sizeLimit          int64
	maximumBodySize    int
	clock              Clock
	defaultExpiration  time.Duration
	caseSensitivePaths bool
	logger             *slog.Logger
	metrics            metrics.Collector
}

// defaultMaximumBodySize is §4.4's suggested per-response capture ceiling.
const defaultMaximumBodySize = 64 * 1024

func defaultOptions() *Options {
	return &Options{
		policy:            DefaultPolicy{},
		maximumBodySize:   defaultMaximumBodySize,
		clock:             systemClock{},
		defaultExpiration: defaultExpiration,
		metrics:           metrics.DefaultCollector,
	}
}

// Option configures a Middleware at construction time.
type Option func(*Options) error

// WithStorage sets the backend responsible for persisting cache entries.
// Required: New returns a ConfigurationError if no storage is configured.
func WithStorage(s Storage) Option {
	return func(o *Options) error {
		if s == nil {
			return &ConfigurationError{Field: "storage", Reason: "must not be nil"}
		}
		o.storage = s
		return nil
	}
}

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(o *Options) error {
		if p == nil {
			return &ConfigurationError{Field: "policy", Reason: "must not be nil"}
		}
		o.policy = p
		return nil
	}
}

// WithSizeLimit records a maximum total of cached bytes on Options. The
// middleware does not pass this value to its Storage, so it bounds nothing
// by itself; a backend enforces a size bound only through its own
// configuration (for MemoryCache, NewMemoryCacheWithLimit).
func WithSizeLimit(bytes int64) Option {
	return func(o *Options) error {
		if bytes < 0 {
			return &ConfigurationError{Field: "sizeLimit", Reason: "must not be negative"}
		}
		o.sizeLimit = bytes
		return nil
	}
}

// WithMaximumBodySize sets the per-response capture ceiling (§4.4). Above
// this many bytes, the capture stream disables buffering for that response
// but keeps streaming it to the client.
func WithMaximumBodySize(bytes int) Option {
	return func(o *Options) error {
		if bytes <= 0 {
			return &ConfigurationError{Field: "maximumBodySize", Reason: "must be positive"}
		}
		o.maximumBodySize = bytes
		return nil
	}
}

// WithClock injects a Clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(o *Options) error {
		if c == nil {
			return &ConfigurationError{Field: "clock", Reason: "must not be nil"}
		}
		o.clock = c
		return nil
	}
}

// WithDefaultExpiration sets the fallback TTL (§4.5) used when a cacheable
// response carries no s-maxage, max-age or Expires information.
func WithDefaultExpiration(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return &ConfigurationError{Field: "defaultExpiration", Reason: "must be positive"}
		}
		o.defaultExpiration = d
		return nil
	}
}

// WithCaseSensitivePaths makes the request path contribute to the cache key
// case-sensitively. Default: case-insensitive (paths are uppercased before
// they are written into the key).
func WithCaseSensitivePaths(sensitive bool) Option {
	return func(o *Options) error {
		o.caseSensitivePaths = sensitive
		return nil
	}
}

// WithLogger overrides the package-level slog.Logger used for this
// Middleware's diagnostic output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return &ConfigurationError{Field: "logger", Reason: "must not be nil"}
		}
		o.logger = l
		return nil
	}
}

// WithMetricsCollector wires a metrics.Collector to instrument cache
// operations. If not set, metrics.DefaultCollector (a no-op) is used.
func WithMetricsCollector(c metrics.Collector) Option {
	return func(o *Options) error {
		if c == nil {
			return &ConfigurationError{Field: "metrics", Reason: "must not be nil"}
		}
		o.metrics = c
		return nil
	}
}
