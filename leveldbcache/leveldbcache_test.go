package leveldbcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandrolain/outputcache/internal/cachetest"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStorage(t *testing.T) {
	cachetest.Storage(t, openTestStorage(t))
}

func TestStorageTTL(t *testing.T) {
	cachetest.StorageTTL(t, openTestStorage(t), 500*time.Millisecond, time.Second)
}
