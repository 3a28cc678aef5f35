//go:build integration

package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	memcachedcontainer "github.com/testcontainers/testcontainers-go/modules/memcached"

	"github.com/sandrolain/outputcache/internal/cachetest"
)

const memcachedImage = "memcached:1.6-alpine"

func setupStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	container, err := memcachedcontainer.Run(ctx, memcachedImage)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	return New(endpoint)
}

func TestStorageIntegration(t *testing.T) {
	cachetest.Storage(t, setupStorage(t))
}

func TestStorageTTLIntegration(t *testing.T) {
	cachetest.StorageTTL(t, setupStorage(t), time.Second, 2*time.Second)
}
