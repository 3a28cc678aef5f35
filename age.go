package outputcache

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// ErrNoDateHeader indicates that the response headers contained no Date
// header, so age cannot be computed from it.
var ErrNoDateHeader = errors.New("outputcache: no Date header")

// parseDate parses the Date header. Responses committed by this package
// always carry one (see startResponse), but entries built by hand for tests
// or decoded from a foreign backend might not.
func parseDate(h http.Header) (time.Time, error) {
	v := h.Get(headerDate)
	if v == "" {
		return time.Time{}, ErrNoDateHeader
	}
	return http.ParseTime(v)
}

// entryAge computes the current age of a cache entry per RFC 9111 §4.2.3,
// simplified for the case that matters here: the entry was produced and
// stored by this same process, so there is no "apparent age" correction to
// perform across a transport hop — the age is simply wall-clock time elapsed
// since the entry's Date value, plus whatever Age value was already present
// when it was captured.
func entryAge(clock Clock, entry *CacheEntry) time.Duration {
	age := clock.Now().Sub(entry.Created)
	if age < 0 {
		age = 0
	}
	if captured, ok := parseAgeSeconds(entry.Header); ok {
		age += time.Duration(captured) * time.Second
	}
	return age
}

// parseAgeSeconds parses the Age header as a non-negative integer number of
// seconds per RFC 9111 §5.1, using the first value if it was duplicated and
// ignoring it entirely if invalid.
func parseAgeSeconds(h http.Header) (int64, bool) {
	v := h.Get(headerAge)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// formatAge renders a duration as the integer-seconds Age header value,
// floored per §4.2.
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
