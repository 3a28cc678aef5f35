// Package outputcache provides an http.Handler middleware that caches
// downstream HTTP responses and serves them for later matching requests,
// optionally revalidating with 304 Not Modified.
//
// Unlike a RoundTripper-based client cache, this package sits in a server's
// middleware chain: it owns the decision of whether to look up a cached
// response, whether to capture a fresh one, and how to answer a conditional
// request from cached metadata alone. It is an edge/forward cache for a
// single origin (the wrapped handler), not a validating proxy: it never
// talks to an upstream server to revalidate a stale entry.
package outputcache
