package outputcache

import "net/http"

// Policy implements the three classification hooks described in §6. Every
// hook may be called exactly once per request, in the fixed order OnRequest,
// [OnServeFromCache], OnServeResponse — OnServeFromCache only runs when a
// lookup produced a hit.
type Policy interface {
	// OnRequest sets AttemptCaching, AllowLookup and AllowStorage (and,
	// optionally, Vary) before any lookup or capture happens.
	OnRequest(ctx *Context)
	// OnServeFromCache runs on every lookup hit, before the middleware
	// checks the entry's freshness and serves it, and may revise
	// freshness-related decisions or clear the entry to force a miss (this interface
	// exposes the entry and its age; the default policy doesn't need to
	// change anything here, but a custom policy might reject serving a
	// particular entry based on request state the key didn't capture).
	OnServeFromCache(ctx *Context)
	// OnServeResponse runs once the downstream response has started, and
	// may only ever further restrict IsResponseCacheable, never relax it.
	OnServeResponse(ctx *Context)
}

// DefaultPolicy implements §4.7's cacheability and freshness rules: public
// GET-shaped responses with no Set-Cookie, no wildcard Vary, and status 200
// are cacheable; everything else is passed straight through.
type DefaultPolicy struct{}

var _ Policy = DefaultPolicy{}

// OnRequest allows caching for any request; storage is restricted to GET and
// HEAD, since those are the only methods §3's immutable CacheEntry model can
// faithfully replay without re-executing side effects.
func (DefaultPolicy) OnRequest(ctx *Context) {
	ctx.AttemptCaching = true
	ctx.AllowStorage = ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead
	ctx.AllowLookup = ctx.AllowStorage
}

// OnServeFromCache makes no further decision in the default policy; the
// freshness and conditional-request evaluation the middleware core
// performs after this hook is authoritative.
func (DefaultPolicy) OnServeFromCache(ctx *Context) {}

// OnServeResponse makes no further restriction in the default policy; it
// trusts the cacheability computed from the response headers.
func (DefaultPolicy) OnServeResponse(ctx *Context) {}

// PolicyChain composes multiple policies, running each hook across all of
// them in order. AllowLookup, AllowStorage and IsResponseCacheable are
// ANDed across the chain, so a later policy can narrow them but never
// widen them. AttemptCaching is ORed: the chain attempts caching if any
// policy does, and lookup and storage stay disabled unless it does.
type PolicyChain []Policy

var _ Policy = PolicyChain(nil)

func (chain PolicyChain) OnRequest(ctx *Context) {
	allowLookup, allowStorage, attempt := true, true, false
	for _, p := range chain {
		p.OnRequest(ctx)
		attempt = attempt || ctx.AttemptCaching
		allowLookup = allowLookup && ctx.AllowLookup
		allowStorage = allowStorage && ctx.AllowStorage
	}
	ctx.AttemptCaching = attempt
	ctx.AllowLookup = allowLookup && attempt
	ctx.AllowStorage = allowStorage && attempt
}

func (chain PolicyChain) OnServeFromCache(ctx *Context) {
	for _, p := range chain {
		p.OnServeFromCache(ctx)
	}
}

func (chain PolicyChain) OnServeResponse(ctx *Context) {
	cacheable := ctx.IsResponseCacheable
	for _, p := range chain {
		p.OnServeResponse(ctx)
		cacheable = cacheable && ctx.IsResponseCacheable
	}
	ctx.IsResponseCacheable = cacheable
}
