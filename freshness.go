package outputcache

import (
	"net/http"
	"strings"
	"time"
)

// defaultExpiration is the fallback TTL (§4.5/§4.7) used when a cacheable
// response carries no shared-max-age, max-age or Expires information at all.
const defaultExpiration = 60 * time.Second

// responseIsCacheable implements §4.7's response-cacheability test. It does
// not consider Age vs. declared freshness; the caller (startResponse) checks
// that separately once it has computed cachedResponseValidFor, since the two
// checks use overlapping but differently-shaped state.
func responseIsCacheable(statusCode int, header http.Header) bool {
	if statusCode != http.StatusOK {
		return false
	}
	if header.Get(headerSetCookie) != "" {
		return false
	}
	if varyIsWildcard(header) {
		return false
	}

	cc := parseDirectives(header)
	if !cc.has(ccPublic) {
		return false
	}
	if cc.has(ccNoStore) || cc.has(ccNoCache) || cc.has(ccPrivate) {
		return false
	}
	return true
}

func varyIsWildcard(header http.Header) bool {
	for _, v := range header.Values(headerVary) {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "*" {
				return true
			}
		}
	}
	return false
}

// validFor implements the §4.5 formula:
// responseSharedMaxAge ?? responseMaxAge ?? (responseExpires - responseTime) ?? default.
func validFor(header http.Header, responseTime time.Time, fallback time.Duration) time.Duration {
	cc := parseDirectives(header)

	if s, ok := cc.seconds(ccSMaxAge); ok {
		return time.Duration(s) * time.Second
	}
	if s, ok := cc.seconds(ccMaxAge); ok {
		return time.Duration(s) * time.Second
	}
	if expiresHeader := header.Get(headerExpires); expiresHeader != "" {
		if expires, err := http.ParseTime(expiresHeader); err == nil {
			if d := expires.Sub(responseTime); d > 0 {
				return d
			}
			return 0
		}
	}
	return fallback
}

// alreadyStale reports whether validFor has already been exceeded by the age
// a response declares for itself at commit time (its own Age header plus
// zero elapsed wall-clock time, since it was just produced). This guards
// against committing an entry that RFC 9111 would call stale on arrival,
// e.g. a downstream handler that echoes a pre-aged Age header.
func alreadyStale(header http.Header, validForDur time.Duration) bool {
	age, ok := parseAgeSeconds(header)
	if !ok {
		return false
	}
	return time.Duration(age)*time.Second >= validForDur
}

// isEntryFresh implements §4.7's "fresh for a request" algorithm.
func isEntryFresh(entryHeader, reqHeader http.Header, entryAge time.Duration) bool {
	reqCC := parseDirectives(reqHeader)
	entryCC := parseDirectives(entryHeader)

	age := entryAge
	if minFresh, ok := reqCC.seconds(ccMinFresh); ok {
		age += time.Duration(minFresh) * time.Second
	}

	if sMaxAge, ok := entryCC.seconds(ccSMaxAge); ok {
		return age < time.Duration(sMaxAge)*time.Second
	}

	entryMaxAge, hasEntryMaxAge := entryCC.seconds(ccMaxAge)
	reqMaxAge, hasReqMaxAge := reqCC.seconds(ccMaxAge)

	if hasEntryMaxAge || hasReqMaxAge {
		lowest := entryMaxAge
		has := hasEntryMaxAge
		if hasReqMaxAge && (!has || reqMaxAge < lowest) {
			lowest = reqMaxAge
			has = true
		}
		if !has {
			return false
		}
		lowestMaxAge := time.Duration(lowest) * time.Second

		if age < lowestMaxAge {
			return true
		}
		if entryCC.has(ccMustRevalidate) || entryCC.has(ccProxyRevalidate) {
			return false
		}
		if maxStale, ok := reqCC.seconds(ccMaxStale); ok {
			if reqCC[ccMaxStale] == "" {
				return true // max-stale with no value accepts any staleness
			}
			return age-lowestMaxAge < time.Duration(maxStale)*time.Second
		}
		return false
	}

	expiresHeader := entryHeader.Get(headerExpires)
	if expiresHeader == "" {
		return false
	}
	expires, err := http.ParseTime(expiresHeader)
	if err != nil {
		return false
	}
	created, err := parseDate(entryHeader)
	if err != nil {
		created = time.Now().UTC().Add(-entryAge)
	}
	// responseTime approximates "now" via created + effective age; fresh iff
	// it has not yet reached the declared Expires instant.
	responseTime := created.Add(age)
	return responseTime.Before(expires)
}
