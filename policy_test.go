package outputcache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyAllowsGetAndHead(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		ctx := &Context{Request: httptest.NewRequest(method, "/", nil)}
		DefaultPolicy{}.OnRequest(ctx)
		require.True(t, ctx.AttemptCaching)
		require.True(t, ctx.AllowLookup)
		require.True(t, ctx.AllowStorage)
	}
}

func TestDefaultPolicyRejectsStorageForOtherMethods(t *testing.T) {
	ctx := &Context{Request: httptest.NewRequest(http.MethodPost, "/", nil)}
	DefaultPolicy{}.OnRequest(ctx)
	require.True(t, ctx.AttemptCaching, "caching is still attempted for other methods; only lookup and storage are refused")
	require.False(t, ctx.AllowStorage)
	require.False(t, ctx.AllowLookup)
}

type fakePolicy struct {
	attemptCaching, allowLookup, allowStorage bool
	rejectResponse                            bool
}

func (p fakePolicy) OnRequest(ctx *Context) {
	ctx.AttemptCaching = p.attemptCaching
	ctx.AllowLookup = p.allowLookup
	ctx.AllowStorage = p.allowStorage
}

func (p fakePolicy) OnServeFromCache(ctx *Context) {}

func (p fakePolicy) OnServeResponse(ctx *Context) {
	if p.rejectResponse {
		ctx.IsResponseCacheable = false
	}
}

func TestPolicyChainNarrowsFlags(t *testing.T) {
	chain := PolicyChain{
		fakePolicy{attemptCaching: true, allowLookup: true, allowStorage: true},
		fakePolicy{attemptCaching: true, allowLookup: false, allowStorage: true},
	}
	ctx := &Context{Request: httptest.NewRequest(http.MethodGet, "/", nil)}
	chain.OnRequest(ctx)

	require.True(t, ctx.AttemptCaching)
	require.False(t, ctx.AllowLookup, "a later policy in the chain narrows, never widens")
	require.True(t, ctx.AllowStorage)
}

func TestPolicyChainAttemptCachingIsOred(t *testing.T) {
	chain := PolicyChain{
		fakePolicy{attemptCaching: false},
		fakePolicy{attemptCaching: true, allowLookup: true, allowStorage: true},
	}
	ctx := &Context{Request: httptest.NewRequest(http.MethodGet, "/", nil)}
	chain.OnRequest(ctx)
	require.True(t, ctx.AttemptCaching)
}

func TestPolicyChainOnServeResponseNarrowsCacheability(t *testing.T) {
	chain := PolicyChain{
		fakePolicy{},
		fakePolicy{rejectResponse: true},
	}
	ctx := &Context{IsResponseCacheable: true}
	chain.OnServeResponse(ctx)
	require.False(t, ctx.IsResponseCacheable)
}

func TestPolicyChainEmptyIsNoOp(t *testing.T) {
	chain := PolicyChain(nil)
	ctx := &Context{Request: httptest.NewRequest(http.MethodGet, "/", nil)}
	chain.OnRequest(ctx)
	require.False(t, ctx.AttemptCaching)
}
