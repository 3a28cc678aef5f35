package outputcache

import (
	"context"
	"net/http"
	"time"
)

// featureKey is the context key type used to attach the per-request feature
// marker to an http.Request. A dedicated unexported type avoids collisions
// with markers set by unrelated middleware.
type featureKey struct{}

// VaryByRules describes the dimensions that segment the cache namespace for
// a given resource: a set of request headers, a set of query keys, and a map
// of custom key/value dimensions a Policy may add. Order within Headers and
// QueryKeys does not affect the derived cache key (§4.3 canonicalization
// sorts them), but callers are encouraged to keep them stable for
// readability.
type VaryByRules struct {
	// Prefix optionally segments the key space further (e.g. by tenant).
	Prefix string
	// Headers lists request header names that participate in the key.
	Headers []string
	// QueryKeys lists request query parameter names that participate in
	// the key.
	QueryKeys []string
	// Custom holds additional caller-supplied dimensions, e.g. a resolved
	// locale or a feature-flag bucket that isn't itself a header or query
	// parameter.
	Custom map[string]string
}

// IsEmpty reports whether no vary-by dimension is configured, meaning the
// key provider should fall back to the base key.
func (v *VaryByRules) IsEmpty() bool {
	return v == nil || (v.Prefix == "" && len(v.Headers) == 0 && len(v.QueryKeys) == 0 && len(v.Custom) == 0)
}

// CacheEntry is the immutable snapshot committed to a Storage backend. Its
// Body is exactly the bytes the downstream handler wrote, bounded by the
// configured maximum body size; entries that would exceed that maximum are
// never committed (see Capture).
type CacheEntry struct {
	// Created is the Date header value captured at response-start time.
	Created time.Time
	// StatusCode is the downstream response status code.
	StatusCode int
	// Header is a copy of all response headers present at commit time,
	// excluding Age (which is recomputed on every serve).
	Header http.Header
	// Body is the captured response body, limited to maximumBodySize.
	Body []byte
}

// clone returns a deep copy of the entry so that callers mutating the
// returned headers (e.g. to overwrite Age before writing to the client)
// never corrupt what is stored in the backend.
func (e *CacheEntry) clone() *CacheEntry {
	if e == nil {
		return nil
	}
	h := make(http.Header, len(e.Header))
	for k, vv := range e.Header {
		cp := make([]string, len(vv))
		copy(cp, vv)
		h[k] = cp
	}
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	return &CacheEntry{
		Created:    e.Created,
		StatusCode: e.StatusCode,
		Header:     h,
		Body:       body,
	}
}

// Context is the mutable per-request carrier passed to a Policy's hooks and
// threaded through one call to Middleware.Invoke. Its lifetime is exactly
// one request; it is never shared across goroutines and must not be
// retained past the handler call it was created for.
type Context struct {
	// Request is the incoming request. Policies read it to classify the
	// request; they must not mutate it.
	Request *http.Request

	// AttemptCaching gates whether the middleware looks at the cache at
	// all for this request. Set by Policy.OnRequest.
	AttemptCaching bool
	// AllowLookup gates whether a stored entry may be looked up and
	// served. Set by Policy.OnRequest.
	AllowLookup bool
	// AllowStorage gates whether a fresh response may be captured and
	// stored. Set by Policy.OnRequest.
	AllowStorage bool

	// IsResponseCacheable reports whether the just-produced response may
	// be stored. Computed by the default freshness evaluator ahead of
	// Policy.OnServeResponse, which may further restrict it.
	IsResponseCacheable bool

	// Vary carries the vary-by rules that should segment this request's
	// cache key. A Policy.OnRequest implementation populates it before
	// lookup; leaving it empty means only the base key is used.
	Vary VaryByRules

	cacheKey       string
	cachedEntry    *CacheEntry // populated after a hit
	cachedEntryAge time.Duration

	responseTime           time.Time
	cachedResponseValidFor time.Duration

	responseStarted bool
	capture         *captureStream
	finalStatusCode int
}

// ResponseWriter returns the response writer for the current request. While
// downstream is running this is the capture stream; Policy hooks may use it
// only to read the status code already written (via StatusCode), never to
// write to it directly.
func (c *Context) ResponseWriter() http.ResponseWriter {
	if c.capture != nil {
		return c.capture
	}
	return nil
}

// StatusCode returns the status code the downstream handler has written so
// far, defaulting to 200 before WriteHeader is called, matching
// net/http's implicit-200 behavior.
func (c *Context) StatusCode() int {
	if c.capture == nil {
		if c.finalStatusCode != 0 {
			return c.finalStatusCode
		}
		return http.StatusOK
	}
	return c.capture.StatusCode()
}

// ResponseHeader returns the header map the downstream handler has set so
// far. Safe to read from Policy.OnServeResponse; mutating it after the
// response has started has no effect on what was already sent to the
// client, only on what gets cloned into the stored entry.
func (c *Context) ResponseHeader() http.Header {
	if c.capture == nil {
		return http.Header{}
	}
	return c.capture.Header()
}

// CachedEntry returns the entry found during lookup, or nil on a miss. Only
// meaningful inside Policy.OnServeFromCache.
func (c *Context) CachedEntry() *CacheEntry {
	return c.cachedEntry
}

// CachedEntryAge returns the age computed for the looked-up entry. Only
// meaningful inside Policy.OnServeFromCache.
func (c *Context) CachedEntryAge() time.Duration {
	return c.cachedEntryAge
}

// hasFeatureMarker reports whether the output-cache feature marker is
// already present on the request's context, indicating the middleware has
// been wired into the chain more than once.
func hasFeatureMarker(r *http.Request) bool {
	marked, _ := r.Context().Value(featureKey{}).(bool)
	return marked
}

// withFeatureMarker returns a request whose context carries the output-cache
// feature marker.
func withFeatureMarker(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), featureKey{}, true))
}
