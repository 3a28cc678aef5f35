// Package cachetest exercises an outputcache.Storage implementation against
// a common contract, so every backend (memory, redis, disk, postgresql...)
// is held to the same get/set/expiry behavior with one shared test body.
package cachetest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandrolain/outputcache"
)

// Storage exercises the outputcache.Storage contract: miss-before-set,
// round-trip equality, and overwriting an existing key. It does not check
// TTL expiry; that is StorageTTL's job. Backends with coarse or
// best-effort TTL (e.g. a bucket-wide expiry) should call StorageTTL
// with a generous margin, or skip it with a documented reason.
func Storage(t *testing.T, storage outputcache.Storage) {
	t.Helper()
	ctx := context.Background()
	key := "cachetest:" + t.Name()

	_, ok, err := storage.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "key present before it was ever set")

	entry := &outputcache.CacheEntry{
		Created:    time.Now().UTC().Truncate(time.Second),
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type": []string{"text/plain"},
			"X-Cachetest":  []string{"1"},
		},
		Body: []byte("hello from cachetest"),
	}

	require.NoError(t, storage.Set(ctx, key, entry, time.Minute))

	got, ok, err := storage.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "could not retrieve an entry we just set")
	require.Equal(t, entry.StatusCode, got.StatusCode)
	require.Equal(t, entry.Body, got.Body)
	require.Equal(t, entry.Header.Get("Content-Type"), got.Header.Get("Content-Type"))
	require.Equal(t, entry.Header.Get("X-Cachetest"), got.Header.Get("X-Cachetest"))
	require.True(t, entry.Created.Equal(got.Created), "created time did not round-trip")

	overwrite := &outputcache.CacheEntry{
		Created:    time.Now().UTC().Truncate(time.Second),
		StatusCode: http.StatusNoContent,
		Header:     http.Header{},
		Body:       nil,
	}
	require.NoError(t, storage.Set(ctx, key, overwrite, time.Minute))

	got, ok, err = storage.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, http.StatusNoContent, got.StatusCode)
	require.Empty(t, got.Body)
}

// StorageTTL checks that a Storage forgets an entry once its TTL elapses.
// Callers pick ttl and margin to fit the backend's expiry granularity
// (e.g. a lazily-checked expiry envelope needs a larger margin than a
// backend with native second-resolution expiry).
func StorageTTL(t *testing.T, storage outputcache.Storage, ttl, margin time.Duration) {
	t.Helper()
	ctx := context.Background()
	key := "cachetest-ttl:" + t.Name()

	entry := &outputcache.CacheEntry{
		Created:    time.Now().UTC(),
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte("expires soon"),
	}
	require.NoError(t, storage.Set(ctx, key, entry, ttl))

	_, ok, err := storage.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok, "entry missing immediately after Set")

	time.Sleep(ttl + margin)

	_, ok, err = storage.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok, "entry still present after its TTL elapsed")
}
