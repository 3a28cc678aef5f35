package outputcache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureStreamBuffersUnderLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	started := 0
	cs := newCaptureStream(rec, 1024, func() { started++ })

	n, err := cs.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 1, started, "onResponseStart must fire exactly once")
	require.Equal(t, "hello", rec.Body.String(), "bytes always reach the underlying writer")
	require.True(t, cs.bufferingEnabled)
	require.Equal(t, []byte("hello"), cs.getBufferedBody())

	_, _ = cs.Write([]byte(" world"))
	require.Equal(t, 1, started, "onResponseStart is idempotent across multiple writes")
	require.Equal(t, "hello world", rec.Body.String())
}

func TestCaptureStreamDisablesBufferingOverLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cs := newCaptureStream(rec, 4, func() {})

	_, err := cs.Write([]byte("toolong"))
	require.NoError(t, err)
	require.False(t, cs.bufferingEnabled)
	require.Empty(t, cs.getBufferedBody())
	require.Equal(t, "toolong", rec.Body.String(), "writes keep flowing to the client even once buffering is given up")

	_, _ = cs.Write([]byte("more"))
	require.Equal(t, "toolongmore", rec.Body.String())
	require.Empty(t, cs.getBufferedBody(), "no further bytes are retained once buffering is disabled")
}

func TestCaptureStreamWriteHeaderFiresStart(t *testing.T) {
	rec := httptest.NewRecorder()
	started := 0
	cs := newCaptureStream(rec, 1024, func() { started++ })

	cs.WriteHeader(http.StatusCreated)
	require.Equal(t, 1, started)
	require.Equal(t, http.StatusCreated, cs.StatusCode())
	require.Equal(t, http.StatusCreated, rec.Code)

	cs.ensureStarted()
	require.Equal(t, 1, started, "a later WriteHeader-independent start call is a no-op once started")
}

func TestCaptureStreamDefaultStatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	cs := newCaptureStream(rec, 1024, func() {})
	require.Equal(t, http.StatusOK, cs.StatusCode(), "matches net/http's implicit 200 before WriteHeader")
}

func TestCaptureStreamEnsureStartedFiresForEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	started := 0
	cs := newCaptureStream(rec, 1024, func() { started++ })

	require.Equal(t, 0, started)
	cs.ensureStarted()
	require.Equal(t, 1, started, "a handler that never calls Write still needs the response-started transition")
}

func TestCaptureStreamFlushForwardsToFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	cs := newCaptureStream(rec, 1024, func() {})
	require.NotPanics(t, func() { cs.Flush() })
}
