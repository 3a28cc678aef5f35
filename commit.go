package outputcache

import (
	"log/slog"
	"net/http"
	"strconv"
)

const headerContentLength = "Content-Length"
const headerTransferEncoding = "Transfer-Encoding"

// captureAndInvoke implements §4.1 step 3: install the capture stream, run
// downstream, finalize headers, commit the entry, and guarantee the capture
// stream is detached on every exit path including a panic from downstream.
func (m *Middleware) captureAndInvoke(w http.ResponseWriter, r *http.Request, next http.Handler, ctx *Context, log *slog.Logger) {
	var capture *captureStream
	capture = newCaptureStream(w, m.opts.maximumBodySize, func() {
		m.startResponse(capture, ctx, r)
	})
	ctx.capture = capture

	defer func() {
		ctx.finalStatusCode = capture.StatusCode()
		ctx.capture = nil
		if rec := recover(); rec != nil {
			panic(rec)
		}
	}()

	next.ServeHTTP(capture, r)

	// A handler that writes no body (e.g. 204, or a HEAD request answered
	// only with headers) never triggers the capture stream's write path;
	// the response-started transition must still fire so commit logic
	// below has consistent state to work from.
	capture.ensureStarted()

	m.commit(r, ctx, capture, log)
}

// startResponse implements §4.5's idempotent "start response" transition.
// OnServeResponse runs as soon as the header-derived cacheability verdict is
// available, and strictly before that verdict is acted on (disableBuffering,
// staleness, Date stamping) — a policy that narrows IsResponseCacheable here
// still gets to prevent buffering from ever starting, instead of observing
// a decision that was already finalized.
func (m *Middleware) startResponse(capture *captureStream, ctx *Context, r *http.Request) {
	if ctx.responseStarted {
		return
	}
	ctx.responseStarted = true
	ctx.responseTime = m.opts.clock.Now()

	ctx.IsResponseCacheable = ctx.AllowStorage && responseIsCacheable(capture.StatusCode(), capture.Header())

	m.opts.policy.OnServeResponse(ctx)

	if !ctx.IsResponseCacheable {
		capture.disableBuffering()
		return
	}

	ctx.cachedResponseValidFor = validFor(capture.Header(), ctx.responseTime, m.opts.defaultExpiration)
	if alreadyStale(capture.Header(), ctx.cachedResponseValidFor) {
		ctx.IsResponseCacheable = false
		capture.disableBuffering()
		return
	}

	if capture.Header().Get(headerDate) == "" {
		capture.Header().Set(headerDate, ctx.responseTime.UTC().Format(http.TimeFormat))
	}
}

// commit implements §4.6.
func (m *Middleware) commit(r *http.Request, ctx *Context, capture *captureStream, log *slog.Logger) {
	if !ctx.IsResponseCacheable || !capture.bufferingEnabled {
		return
	}

	buf := capture.getBufferedBody()
	header := capture.Header()

	contentLength := header.Get(headerContentLength)
	switch {
	case contentLength == "":
		if header.Get(headerTransferEncoding) == "" {
			header = cloneHeader(header)
			header.Set(headerContentLength, strconv.Itoa(len(buf)))
		}
	case contentLength == strconv.Itoa(len(buf)):
		// matches, nothing to do
	case len(buf) == 0 && r.Method == http.MethodHead:
		// HEAD responses declare a Content-Length for a body they never send
	default:
		return
	}

	created, err := parseDate(header)
	if err != nil {
		created = ctx.responseTime
	}

	entry := &CacheEntry{
		Created:    created,
		StatusCode: capture.StatusCode(),
		Header:     cloneHeaderExcept(header, headerAge, HeaderCacheStatus),
		Body:       append([]byte(nil), buf...),
	}

	if err := m.opts.storage.Set(r.Context(), ctx.cacheKey, entry, ctx.cachedResponseValidFor); err != nil {
		m.reportStorageError(log, "set", ctx.cacheKey, err)
	}
}

func cloneHeader(h http.Header) http.Header {
	cp := make(http.Header, len(h))
	for k, v := range h {
		cp[k] = append([]string(nil), v...)
	}
	return cp
}

// cloneHeaderExcept deep-copies h, dropping any of the given header names.
// Used to keep headers the middleware itself manages — Age, and its own
// diagnostic HeaderCacheStatus — out of what gets persisted as a cache
// entry, so a stored response never carries stale bookkeeping from the
// request that created it.
func cloneHeaderExcept(h http.Header, exclude ...string) http.Header {
	cp := make(http.Header, len(h))
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[http.CanonicalHeaderKey(name)] = struct{}{}
	}
	for k, v := range h {
		if _, ok := skip[k]; ok {
			continue
		}
		cp[k] = append([]string(nil), v...)
	}
	return cp
}
