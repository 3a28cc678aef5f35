package outputcache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResponseIsCacheable(t *testing.T) {
	cacheableHeader := http.Header{headerCacheControl: []string{"public, max-age=60"}}
	require.True(t, responseIsCacheable(http.StatusOK, cacheableHeader))
	require.False(t, responseIsCacheable(http.StatusNotFound, cacheableHeader))
}

func TestResponseIsCacheableRejectsSetCookie(t *testing.T) {
	h := http.Header{
		headerCacheControl: []string{"public, max-age=60"},
		headerSetCookie:    []string{"session=abc"},
	}
	require.False(t, responseIsCacheable(http.StatusOK, h))
}

func TestResponseIsCacheableRejectsWildcardVary(t *testing.T) {
	h := http.Header{
		headerCacheControl: []string{"public, max-age=60"},
		headerVary:         []string{"*"},
	}
	require.False(t, responseIsCacheable(http.StatusOK, h))
}

func TestResponseIsCacheableRequiresPublic(t *testing.T) {
	h := http.Header{headerCacheControl: []string{"max-age=60"}}
	require.False(t, responseIsCacheable(http.StatusOK, h))
}

func TestResponseIsCacheableRejectsNoStoreNoCachePrivate(t *testing.T) {
	for _, directive := range []string{"no-store", "no-cache", "private"} {
		h := http.Header{headerCacheControl: []string{"public, " + directive}}
		require.False(t, responseIsCacheable(http.StatusOK, h), directive)
	}
}

func TestValidFor(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	h := http.Header{headerCacheControl: []string{"s-maxage=30, max-age=60"}}
	require.Equal(t, 30*time.Second, validFor(h, responseTime, defaultExpiration), "s-maxage wins over max-age")

	h = http.Header{headerCacheControl: []string{"max-age=60"}}
	require.Equal(t, 60*time.Second, validFor(h, responseTime, defaultExpiration))

	h = http.Header{headerExpires: []string{responseTime.Add(90 * time.Second).Format(http.TimeFormat)}}
	require.Equal(t, 90*time.Second, validFor(h, responseTime, defaultExpiration))

	require.Equal(t, defaultExpiration, validFor(http.Header{}, responseTime, defaultExpiration))
}

func TestValidForExpiresInPast(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{headerExpires: []string{responseTime.Add(-time.Hour).Format(http.TimeFormat)}}
	require.Equal(t, time.Duration(0), validFor(h, responseTime, defaultExpiration))
}

func TestAlreadyStale(t *testing.T) {
	h := http.Header{headerAge: []string{"60"}}
	require.True(t, alreadyStale(h, 60*time.Second))
	require.True(t, alreadyStale(h, 30*time.Second))
	require.False(t, alreadyStale(h, 120*time.Second))
}

func TestIsEntryFreshMaxAge(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"max-age=60"}}
	require.True(t, isEntryFresh(entryHeader, http.Header{}, 30*time.Second))
	require.False(t, isEntryFresh(entryHeader, http.Header{}, 90*time.Second))
}

func TestIsEntryFreshSMaxAgeTakesPrecedence(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"s-maxage=10, max-age=1000"}}
	require.True(t, isEntryFresh(entryHeader, http.Header{}, 5*time.Second))
	require.False(t, isEntryFresh(entryHeader, http.Header{}, 20*time.Second))
}

func TestIsEntryFreshRequestMinFresh(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"max-age=60"}}
	reqHeader := http.Header{headerCacheControl: []string{"min-fresh=40"}}
	require.True(t, isEntryFresh(entryHeader, http.Header{}, 30*time.Second))
	require.False(t, isEntryFresh(entryHeader, reqHeader, 30*time.Second), "min-fresh=40 pushes effective age to 70s")
}

func TestIsEntryFreshRequestMaxAgeNarrowsWindow(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"max-age=60"}}
	reqHeader := http.Header{headerCacheControl: []string{"max-age=10"}}
	require.False(t, isEntryFresh(entryHeader, reqHeader, 30*time.Second), "request max-age is the lower of the two")
}

func TestIsEntryFreshMustRevalidateBlocksMaxStale(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"max-age=10, must-revalidate"}}
	reqHeader := http.Header{headerCacheControl: []string{"max-stale=1000"}}
	require.False(t, isEntryFresh(entryHeader, reqHeader, 20*time.Second))
}

func TestIsEntryFreshMaxStaleAcceptsStaleness(t *testing.T) {
	entryHeader := http.Header{headerCacheControl: []string{"max-age=10"}}
	reqHeader := http.Header{headerCacheControl: []string{"max-stale=100"}}
	require.True(t, isEntryFresh(entryHeader, reqHeader, 20*time.Second))

	reqHeader = http.Header{headerCacheControl: []string{"max-stale"}}
	require.True(t, isEntryFresh(entryHeader, reqHeader, 10000*time.Second), "bare max-stale accepts any staleness")
}

func TestIsEntryFreshExpiresFallback(t *testing.T) {
	created := time.Now().UTC().Add(-30 * time.Second)
	entryHeader := http.Header{
		headerDate:    []string{created.Format(http.TimeFormat)},
		headerExpires: []string{created.Add(time.Minute).Format(http.TimeFormat)},
	}
	require.True(t, isEntryFresh(entryHeader, http.Header{}, 30*time.Second))
	require.False(t, isEntryFresh(entryHeader, http.Header{}, 90*time.Second))
}

func TestIsEntryFreshNoFreshnessInfo(t *testing.T) {
	require.False(t, isEntryFresh(http.Header{}, http.Header{}, 0))
}
