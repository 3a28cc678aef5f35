package outputcache

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresStorage(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "storage", configErr.Field)
}

func TestNewAppliesOptions(t *testing.T) {
	storage := NewMemoryCache()
	m, err := New(
		WithStorage(storage),
		WithMaximumBodySize(1024),
		WithDefaultExpiration(5*time.Second),
		WithCaseSensitivePaths(true),
	)
	require.NoError(t, err)
	require.Equal(t, 1024, m.opts.maximumBodySize)
	require.Equal(t, 5*time.Second, m.opts.defaultExpiration)
	require.True(t, m.opts.caseSensitivePaths)
}

func TestWithStorageRejectsNil(t *testing.T) {
	_, err := New(WithStorage(nil))
	require.Error(t, err)
}

func TestWithPolicyRejectsNil(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithPolicy(nil))
	require.Error(t, err)
}

func TestWithSizeLimitRejectsNegative(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithSizeLimit(-1))
	require.Error(t, err)
}

func TestWithMaximumBodySizeRejectsNonPositive(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithMaximumBodySize(0))
	require.Error(t, err)
}

func TestWithClockRejectsNil(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithClock(nil))
	require.Error(t, err)
}

func TestWithDefaultExpirationRejectsNonPositive(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithDefaultExpiration(0))
	require.Error(t, err)
}

func TestWithLoggerRejectsNil(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithLogger(nil))
	require.Error(t, err)
}

func TestWithLoggerIsUsed(t *testing.T) {
	custom := slog.Default()
	m, err := New(WithStorage(NewMemoryCache()), WithLogger(custom))
	require.NoError(t, err)
	require.Equal(t, custom, m.log())
}

func TestWithMetricsCollectorRejectsNil(t *testing.T) {
	_, err := New(WithStorage(NewMemoryCache()), WithMetricsCollector(nil))
	require.Error(t, err)
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Field: "storage", Reason: "must not be nil"}
	require.Contains(t, err.Error(), "storage")
	require.Contains(t, err.Error(), "must not be nil")
}
