package outputcache

import "errors"

// ErrCacheKeyUndefined is returned when the key provider produces an empty
// key for a request where a key was required. This is fatal for the request:
// the middleware cannot safely look up or store without a key.
var ErrCacheKeyUndefined = errors.New("outputcache: cache key undefined")

// ErrDuplicateMiddleware is returned when the per-request feature marker is
// already present on entry to Invoke, indicating the middleware has been
// installed more than once in the same chain.
var ErrDuplicateMiddleware = errors.New("outputcache: middleware installed more than once for this request")

// ConfigurationError reports an invalid or incomplete Options value detected
// at construction time. It is always fatal: the middleware refuses to serve
// any request until the configuration is fixed.
type ConfigurationError struct {
	// Field names the option that failed validation.
	Field string
	// Reason describes why the value is invalid.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "outputcache: invalid configuration for " + e.Field + ": " + e.Reason
}

// StorageError wraps a failure returned by the Storage backend's Get or Set.
// Per the error-handling contract, a Get failure is treated as a cache miss
// and a Set failure is treated as a no-op commit; StorageError is logged,
// never returned to the request, and never fails the request it occurred on.
type StorageError struct {
	// Op is "get" or "set".
	Op string
	// Key is the cache key involved.
	Key string
	// Err is the underlying backend error.
	Err error
}

func (e *StorageError) Error() string {
	return "outputcache: storage " + e.Op + " failed for key " + e.Key + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
