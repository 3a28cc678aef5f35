package outputcache

import (
	"net/http"
	"strings"
	"time"
)

// conditionalMatch implements §4.8: whether a cached entry counts as "not
// modified" relative to the incoming request's conditional headers. When it
// returns true, the caller serves 304 Not Modified instead of replaying the
// body.
func conditionalMatch(entryHeader, reqHeader http.Header) bool {
	if inm := reqHeader.Get(headerIfNoneMatch); inm != "" {
		return ifNoneMatchMatches(inm, entryHeader.Get(headerETag))
	}
	if ims := reqHeader.Get(headerIfModSince); ims != "" {
		return ifModifiedSinceMatches(ims, entryHeader)
	}
	return false
}

func ifNoneMatchMatches(requestValue, entryETag string) bool {
	requestValue = strings.TrimSpace(requestValue)
	if requestValue == "*" {
		return true
	}
	if entryETag == "" {
		return false
	}
	for _, candidate := range splitETagList(requestValue) {
		if weakETagEqual(candidate, entryETag) {
			return true
		}
	}
	return false
}

// splitETagList splits a comma-separated If-None-Match field into
// individual entity-tag tokens, respecting commas embedded in quoted tags.
func splitETagList(value string) []string {
	var tags []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range value {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			if tag := strings.TrimSpace(cur.String()); tag != "" {
				tags = append(tags, tag)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if tag := strings.TrimSpace(cur.String()); tag != "" {
		tags = append(tags, tag)
	}
	return tags
}

// weakETagEqual compares two entity-tags using weak comparison (RFC 9110
// §8.8.3.2): the W/ prefix is stripped from both sides before comparing the
// quoted opaque value.
func weakETagEqual(a, b string) bool {
	return strings.TrimPrefix(a, "W/") == strings.TrimPrefix(b, "W/")
}

func ifModifiedSinceMatches(value string, entryHeader http.Header) bool {
	ifModifiedSince, err := http.ParseTime(value)
	if err != nil {
		return false
	}

	lastModified, ok := entryLastModified(entryHeader)
	if !ok {
		return false
	}
	return !lastModified.After(ifModifiedSince)
}

// entryLastModified resolves the cached entry's last-modified instant,
// preferring its Last-Modified header and falling back to Date, per §4.8.
func entryLastModified(entryHeader http.Header) (time.Time, bool) {
	if lm := entryHeader.Get(headerLastModified); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			return t, true
		}
	}
	if d, err := parseDate(entryHeader); err == nil {
		return d, true
	}
	return time.Time{}, false
}
