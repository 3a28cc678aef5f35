package outputcache

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HeaderCacheStatus is set on every response the middleware serves,
// mirroring the "X-Cache"-style diagnostic header common to reverse
// proxies: HIT for a cache-served response (full or 304), MISS when
// caching was attempted but no cached response was served (whether or not
// AllowStorage then lets the result be stored, and including the 504 for
// only-if-cached), and BYPASS when the policy opted the request out of
// caching entirely.
const HeaderCacheStatus = "X-Output-Cache-Status"

// Middleware wraps an http.Handler with the output-caching state machine
// described in §4.1: classify, lookup, capture, or pass through.
type Middleware struct {
	opts *Options
	keys *keyProvider
}

// New constructs a Middleware. WithStorage is required; every other Option
// has a default. New returns a *ConfigurationError if required options are
// missing or any Option rejects its value.
func New(opts ...Option) (*Middleware, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.storage == nil {
		return nil, &ConfigurationError{Field: "storage", Reason: "WithStorage is required"}
	}
	return &Middleware{
		opts: o,
		keys: &keyProvider{caseSensitivePaths: o.caseSensitivePaths},
	}, nil
}

// Wrap returns an http.Handler that runs the output-cache state machine in
// front of next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.invoke(w, r, next)
	})
}

// log returns the logger configured via WithLogger, falling back to the
// package-level GetLogger.
func (m *Middleware) log() *slog.Logger {
	if m.opts.logger != nil {
		return m.opts.logger
	}
	return GetLogger()
}

// invoke implements §4.1's state machine.
func (m *Middleware) invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	log := m.log()

	if hasFeatureMarker(r) {
		log.Error("output-cache middleware installed more than once", "error", ErrDuplicateMiddleware)
		next.ServeHTTP(w, r)
		return
	}
	r = withFeatureMarker(r)

	ctx := &Context{Request: r}
	m.opts.policy.OnRequest(ctx)

	start := m.opts.clock.Now()
	cacheStatus := "bypass"
	defer func() {
		m.opts.metrics.RecordHTTPRequest(r.Method, cacheStatus, ctx.StatusCode(), m.opts.clock.Now().Sub(start))
	}()

	if !ctx.AttemptCaching {
		w.Header().Set(HeaderCacheStatus, "BYPASS")
		next.ServeHTTP(w, r)
		return
	}

	if ctx.AllowLookup {
		key := m.keys.varyByKey(r, ctx.Vary)
		if key == "" {
			log.Error("cache key derivation produced an empty key", "error", ErrCacheKeyUndefined)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			ctx.finalStatusCode = http.StatusInternalServerError
			return
		}
		ctx.cacheKey = key

		if served := m.lookupAndServe(w, r, ctx, log); served {
			cacheStatus = "hit"
			return
		}

		if onlyIfCached(r.Header) {
			w.Header().Set(HeaderCacheStatus, "MISS")
			w.WriteHeader(http.StatusGatewayTimeout)
			ctx.finalStatusCode = http.StatusGatewayTimeout
			cacheStatus = "miss"
			return
		}
	}

	cacheStatus = "miss"
	w.Header().Set(HeaderCacheStatus, "MISS")

	if !ctx.AllowStorage {
		next.ServeHTTP(w, r)
		return
	}

	m.captureAndInvoke(w, r, next, ctx, log)
}

func onlyIfCached(reqHeader http.Header) bool {
	return parseDirectives(reqHeader).has(ccOnlyIfCached)
}

// lookupAndServe implements the lookup branch of §4.1 step 2 and the serve
// logic of §4.2. It returns true if a response was fully written to the
// client (a fresh hit, whether replayed in full or answered with 304).
func (m *Middleware) lookupAndServe(w http.ResponseWriter, r *http.Request, ctx *Context, log *slog.Logger) bool {
	entry, hit, err := m.opts.storage.Get(r.Context(), ctx.cacheKey)
	if err != nil {
		m.reportStorageError(log, "get", ctx.cacheKey, err)
		return false
	}
	if !hit {
		return false
	}

	responseTime := m.opts.clock.Now()
	age := entryAge(m.opts.clock, entry)
	if age < 0 {
		age = 0
	}

	ctx.cachedEntry = entry
	ctx.cachedEntryAge = age
	ctx.responseTime = responseTime

	m.opts.policy.OnServeFromCache(ctx)

	// OnServeFromCache may have cleared the entry to force a miss.
	entry = ctx.cachedEntry
	if entry == nil {
		return false
	}

	if !isEntryFresh(entry.Header, r.Header, age) {
		return false
	}

	w.Header().Set(HeaderCacheStatus, "HIT")

	if conditionalMatch(entry.Header, r.Header) {
		writeNotModified(w, entry.Header)
		ctx.finalStatusCode = http.StatusNotModified
		return true
	}

	writeEntryBody(w, r, entry, age)
	ctx.finalStatusCode = entry.StatusCode
	return true
}

// notModifiedHeaders lists the headers §4.2 says to copy onto a 304
// response, in the order a reader would expect to see them.
var notModifiedHeaders = []string{
	"Cache-Control", "Content-Location", headerDate, headerETag, headerExpires, headerVary,
}

func writeNotModified(w http.ResponseWriter, entryHeader http.Header) {
	for _, name := range notModifiedHeaders {
		if v := entryHeader.Values(name); len(v) > 0 {
			w.Header()[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
		}
	}
	w.WriteHeader(http.StatusNotModified)
}

// writeEntryBody replays a cached entry. entry.Header never carries the
// middleware's own HeaderCacheStatus (commit excludes it), so the HIT set
// by the caller survives this copy.
func writeEntryBody(w http.ResponseWriter, r *http.Request, entry *CacheEntry, age time.Duration) {
	dst := w.Header()
	for name, values := range entry.Header {
		dst[name] = append([]string(nil), values...)
	}
	dst.Set(headerAge, formatAge(age))
	w.WriteHeader(entry.StatusCode)

	if len(entry.Body) == 0 {
		return
	}
	writeBodyRespectingCancellation(w, r.Context(), entry.Body)
}

// writeBodyRespectingCancellation streams a cached body to w in fixed
// segments, checking the request context between each one so a client
// disconnect during replay aborts the transport instead of writing into a
// dead connection. Errors are swallowed, matching the ClientAbort handling
// the rest of the replay path already follows.
func writeBodyRespectingCancellation(w http.ResponseWriter, ctx context.Context, body []byte) {
	for len(body) > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n := captureSegmentSize
		if n > len(body) {
			n = len(body)
		}
		if _, err := w.Write(body[:n]); err != nil {
			return
		}
		body = body[n:]
	}
}

func (m *Middleware) reportStorageError(log *slog.Logger, op, key string, err error) {
	log.Error("storage operation failed", "error", &StorageError{Op: op, Key: key, Err: err})
}
