package prewarmer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func countingHandler(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("body for " + r.URL.Path))
	})
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New(Config{Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	require.Equal(t, "outputcache-prewarmer/1.0", p.userAgent)
	require.Equal(t, 30*time.Second, p.timeout)
}

func TestPrewarmSequential(t *testing.T) {
	var calls atomic.Int32
	p, err := New(Config{Handler: countingHandler(&calls)})
	require.NoError(t, err)

	stats, err := p.Prewarm(context.Background(), []string{"/a", "/b", "/missing"})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.Successful)
	require.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	require.Equal(t, int32(3), calls.Load())
}

func TestPrewarmWithCallbackReportsProgress(t *testing.T) {
	var calls atomic.Int32
	p, err := New(Config{Handler: countingHandler(&calls)})
	require.NoError(t, err)

	var completedSteps []int
	_, err = p.PrewarmWithCallback(context.Background(), []string{"/a", "/b"}, func(_ *Result, completed, total int) {
		completedSteps = append(completedSteps, completed)
		require.Equal(t, 2, total)
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, completedSteps)
}

func TestPrewarmConcurrent(t *testing.T) {
	var calls atomic.Int32
	p, err := New(Config{Handler: countingHandler(&calls)})
	require.NoError(t, err)

	paths := []string{"/a", "/b", "/c", "/d", "/e"}
	stats, err := p.PrewarmConcurrent(context.Background(), paths, 3)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, 5, stats.Successful)
	require.Equal(t, int32(5), calls.Load())
}

func TestPrewarmConcurrentDefaultsWorkers(t *testing.T) {
	var calls atomic.Int32
	p, err := New(Config{Handler: countingHandler(&calls)})
	require.NoError(t, err)

	stats, err := p.PrewarmConcurrent(context.Background(), []string{"/a"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Successful)
}

func TestPrewarmRespectsCancelledContext(t *testing.T) {
	var calls atomic.Int32
	p, err := New(Config{Handler: countingHandler(&calls)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Prewarm(ctx, []string{"/a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestForceRefreshSetsNoCacheHeader(t *testing.T) {
	var seenHeader string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get("Cache-Control")
		w.WriteHeader(http.StatusOK)
	})

	p, err := New(Config{Handler: handler, ForceRefresh: true})
	require.NoError(t, err)

	_, err = p.Prewarm(context.Background(), []string{"/a"})
	require.NoError(t, err)
	require.Equal(t, "no-cache", seenHeader)
}

func TestPrewarmFromSitemap(t *testing.T) {
	var calls atomic.Int32
	handlerCalls := &calls
	prewarmed := countingHandler(handlerCalls)

	sitemapServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b?x=1</loc></url>
</urlset>`))
	}))
	defer sitemapServer.Close()

	p, err := New(Config{Handler: prewarmed})
	require.NoError(t, err)

	stats, err := p.PrewarmFromSitemap(context.Background(), sitemapServer.URL)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 2, stats.Successful)
}

func TestURLPathPreservesQuery(t *testing.T) {
	path, err := urlPath("https://example.com/a/b?x=1&y=2")
	require.NoError(t, err)
	require.Equal(t, "/a/b?x=1&y=2", path)

	path, err = urlPath("https://example.com/plain")
	require.NoError(t, err)
	require.Equal(t, "/plain", path)
}
