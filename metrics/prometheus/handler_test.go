package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandrolain/outputcache"
)

type sizeRecordingCollector struct {
	sizes       []int64
	cacheStatus []string
}

func (c *sizeRecordingCollector) RecordCacheOperation(string, string, string, time.Duration) {}
func (c *sizeRecordingCollector) RecordCacheSize(string, int64)                              {}
func (c *sizeRecordingCollector) RecordCacheEntries(string, int64)                            {}
func (c *sizeRecordingCollector) RecordHTTPRequest(string, string, int, time.Duration)        {}
func (c *sizeRecordingCollector) RecordHTTPResponseSize(cacheStatus string, sizeBytes int64) {
	c.cacheStatus = append(c.cacheStatus, cacheStatus)
	c.sizes = append(c.sizes, sizeBytes)
}
func (c *sizeRecordingCollector) RecordStaleResponse(string) {}

func TestInstrumentedHandlerRecordsSizeByStatus(t *testing.T) {
	collector := &sizeRecordingCollector{}
	handler := NewInstrumentedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(outputcache.HeaderCacheStatus, "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("0123456789"))
	}), collector)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"hit"}, collector.cacheStatus)
	require.Equal(t, []int64{10}, collector.sizes)
}

func TestInstrumentedHandlerClassifiesBypassAndMiss(t *testing.T) {
	collector := &sizeRecordingCollector{}
	bypass := NewInstrumentedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(outputcache.HeaderCacheStatus, "BYPASS")
		_, _ = w.Write([]byte("ab"))
	}), collector)
	bypass.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "bypass", collector.cacheStatus[0])

	miss := NewInstrumentedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(outputcache.HeaderCacheStatus, "MISS")
		_, _ = w.Write([]byte("abc"))
	}), collector)
	miss.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "miss", collector.cacheStatus[1])

	noHeader := NewInstrumentedHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}), collector)
	noHeader.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "miss", collector.cacheStatus[2], "an absent header defaults to miss")
}

func TestInstrumentedHandlerDefaultsCollector(t *testing.T) {
	h := NewInstrumentedHandler(http.NotFoundHandler(), nil)
	require.NotNil(t, h.collector)
}
