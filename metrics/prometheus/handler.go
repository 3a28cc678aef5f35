package prometheus

import (
	"net/http"

	"github.com/sandrolain/outputcache"
	"github.com/sandrolain/outputcache/metrics"
)

// InstrumentedHandler wraps the http.Handler returned by Middleware.Wrap to
// record response-size metrics. Middleware records RecordHTTPRequest on its
// own; this wrapper adds RecordHTTPResponseSize, classifying each response
// by reading outputcache.HeaderCacheStatus, which Middleware sets on every
// response it serves.
type InstrumentedHandler struct {
	underlying http.Handler
	collector  metrics.Collector
}

// NewInstrumentedHandler wraps underlying, recording response-size metrics
// through collector. If collector is nil, metrics.DefaultCollector is used.
//
// Example:
//
//	mw, _ := outputcache.New(outputcache.WithStorage(store))
//	handler := prometheus.NewInstrumentedHandler(mw.Wrap(mux), collector)
func NewInstrumentedHandler(underlying http.Handler, collector metrics.Collector) *InstrumentedHandler {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedHandler{underlying: underlying, collector: collector}
}

func (h *InstrumentedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &sizeRecorder{ResponseWriter: w}
	h.underlying.ServeHTTP(rec, r)

	cacheStatus := "miss"
	switch rec.Header().Get(outputcache.HeaderCacheStatus) {
	case "HIT":
		cacheStatus = "hit"
	case "BYPASS":
		cacheStatus = "bypass"
	}
	h.collector.RecordHTTPResponseSize(cacheStatus, rec.size)
}

var _ http.Handler = (*InstrumentedHandler)(nil)

// sizeRecorder counts bytes written through a ResponseWriter without
// buffering them, so InstrumentedHandler can report the response size
// regardless of what the wrapped handler actually sent.
type sizeRecorder struct {
	http.ResponseWriter
	size int64
}

func (s *sizeRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *sizeRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
