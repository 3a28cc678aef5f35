package hazelcast

import (
	"context"
	"testing"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/hazelcast/hazelcast-go-client/types"

	"github.com/sandrolain/outputcache/internal/cachetest"
)

func connectOrSkip(t *testing.T, mapName string) *Storage {
	t.Helper()
	ctx := context.Background()

	config := hazelcast.Config{}
	config.Cluster.Network.SetAddresses("localhost:5701")
	config.Cluster.Unisocket = true
	config.Cluster.ConnectionStrategy.Timeout = types.Duration(5 * time.Second)

	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		t.Skipf("skipping test; no Hazelcast server running at localhost:5701: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = client.Shutdown(shutdownCtx)
	})

	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		t.Fatalf("failed to get Hazelcast map: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("failed to clear Hazelcast map: %v", err)
	}

	return NewWithMap(m)
}

func TestStorage(t *testing.T) {
	cachetest.Storage(t, connectOrSkip(t, "test-cache"))
}

func TestStorageTTL(t *testing.T) {
	cachetest.StorageTTL(t, connectOrSkip(t, "test-cache-ttl"), 500*time.Millisecond, time.Second)
}
