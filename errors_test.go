package outputcache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrorMessageAndUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := &StorageError{Op: "get", Key: "k", Err: underlying}

	require.Contains(t, err.Error(), "get")
	require.Contains(t, err.Error(), "k")
	require.Contains(t, err.Error(), "connection refused")
	require.ErrorIs(t, err, underlying)
}

func TestConfigurationErrorMessageFields(t *testing.T) {
	err := &ConfigurationError{Field: "clock", Reason: "must not be nil"}
	require.Contains(t, err.Error(), "clock")
	require.Contains(t, err.Error(), "must not be nil")
}
