package outputcache

import (
	"bytes"
	"net/http"
)

// captureSegmentSize is the fixed chunk size used when replaying a cached
// body to the client (see writeBodyRespectingCancellation). The capture
// buffer itself is a single bytes.Buffer and does not grow in fixed segments.
const captureSegmentSize = 80 * 1024

// captureStream wraps the downstream response writer so the middleware can
// observe and buffer what a handler writes without ever withholding it from
// the client. Writes always reach the underlying ResponseWriter; buffering
// is a side channel that the middleware can give up on at any point without
// affecting what the client receives.
type captureStream struct {
	http.ResponseWriter

	maxBodySize int

	onResponseStart func()
	started         bool

	bufferingEnabled bool
	buf              bytes.Buffer

	statusCode int
	wroteHeader bool
}

// newCaptureStream constructs a capture stream over w. onResponseStart is
// invoked exactly once, on the first byte written (or via ensureStarted, if
// the downstream handler writes no body at all).
func newCaptureStream(w http.ResponseWriter, maxBodySize int, onResponseStart func()) *captureStream {
	return &captureStream{
		ResponseWriter:   w,
		maxBodySize:      maxBodySize,
		onResponseStart:  onResponseStart,
		bufferingEnabled: true,
		statusCode:       http.StatusOK,
	}
}

// WriteHeader records the status code and fires the response-started
// transition, then forwards to the underlying writer.
func (c *captureStream) WriteHeader(statusCode int) {
	c.statusCode = statusCode
	c.wroteHeader = true
	c.ensureStarted()
	c.ResponseWriter.WriteHeader(statusCode)
}

// Write buffers up to maxBodySize bytes (while buffering remains enabled)
// and always forwards the full write to the underlying sink.
func (c *captureStream) Write(p []byte) (int, error) {
	c.ensureStarted()

	if c.bufferingEnabled {
		if c.buf.Len()+len(p) > c.maxBodySize {
			c.disableBuffering()
		} else {
			c.buf.Write(p)
		}
	}

	return c.ResponseWriter.Write(p)
}

// ensureStarted fires the response-started callback idempotently. It is
// also called explicitly by the middleware after downstream returns, to
// cover handlers that wrote no body at all (e.g. 204/304 or HEAD requests).
func (c *captureStream) ensureStarted() {
	if c.started {
		return
	}
	c.started = true
	if c.onResponseStart != nil {
		c.onResponseStart()
	}
}

// disableBuffering gives up on capturing the body: the buffer is discarded
// and no further bytes are retained, but writes keep flowing to the client
// exactly as before.
func (c *captureStream) disableBuffering() {
	c.bufferingEnabled = false
	c.buf.Reset()
}

// getBufferedBody returns the bytes captured so far. It is meaningless to
// call once bufferingEnabled is false.
func (c *captureStream) getBufferedBody() []byte {
	return c.buf.Bytes()
}

// StatusCode reports the status code the handler wrote, or 200 if
// WriteHeader was never called explicitly (net/http's implicit behavior).
func (c *captureStream) StatusCode() int {
	return c.statusCode
}

// Flush forwards to the underlying writer's Flush, if it implements
// http.Flusher, so that streaming handlers keep working through the
// capture wrapper.
func (c *captureStream) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
