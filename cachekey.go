package outputcache

import (
	"net/http"
	"sort"
	"strings"
)

const (
	keyFieldSep = "\x1e"
	keyPairSep  = "\x1f"
)

// keyProvider derives cache keys from a request and its vary-by rules. It is
// pure and deterministic: the same request and rules always produce the same
// key, regardless of the order headers or query parameters were supplied in.
type keyProvider struct {
	caseSensitivePaths bool
}

// baseKey implements §4.3's base key: method, scheme, host and normalized
// path joined with U+001E, with no header values contributing at all.
func (kp *keyProvider) baseKey(r *http.Request) string {
	scheme := requestScheme(r)
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !kp.caseSensitivePaths {
		path = strings.ToUpper(path)
	}
	return r.Method + keyFieldSep + scheme + keyFieldSep + r.Host + keyFieldSep + path
}

// requestScheme recovers the request scheme, falling back to "http" for a
// server-side *http.Request whose URL has no scheme set, as happens for
// requests read directly off a net.Listener.
func requestScheme(r *http.Request) string {
	if r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// varyByKey implements §4.3's vary-by key: the base key followed by a
// canonical serialization of the selected headers, query keys and custom
// dimensions. If rules is empty, it returns the same value as baseKey.
func (kp *keyProvider) varyByKey(r *http.Request, rules VaryByRules) string {
	base := kp.baseKey(r)
	if rules.IsEmpty() {
		return base
	}

	var sections []string
	if rules.Prefix != "" {
		sections = append(sections, strings.ToUpper(rules.Prefix))
	}

	if len(rules.Headers) > 0 {
		sections = append(sections, canonicalHeaderSection(r.Header, rules.Headers))
	}

	if len(rules.QueryKeys) > 0 {
		sections = append(sections, canonicalQuerySection(r.URL.Query(), rules.QueryKeys))
	}

	if len(rules.Custom) > 0 {
		sections = append(sections, canonicalCustomSection(rules.Custom))
	}

	if len(sections) == 0 {
		return base
	}
	return base + keyFieldSep + strings.Join(sections, keyFieldSep)
}

// canonicalHeaderSection canonicalizes selected request header values per
// §4.3: each named header's values are uppercased and, when a header repeats,
// sorted byte-ascending before being joined back together.
func canonicalHeaderSection(h http.Header, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		canonical := http.CanonicalHeaderKey(strings.TrimSpace(name))
		values := h.Values(canonical)
		parts = append(parts, canonical+keyPairSep+canonicalValues(values))
	}
	sort.Strings(parts)
	return strings.Join(parts, keyPairSep)
}

// canonicalQuerySection canonicalizes selected query parameter values the
// same way headers are canonicalized.
func canonicalQuerySection(q map[string][]string, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strings.ToUpper(name)+keyPairSep+canonicalValues(q[name]))
	}
	sort.Strings(parts)
	return strings.Join(parts, keyPairSep)
}

// canonicalCustomSection implements the custom-dimension rule verbatim:
// uppercase(k) + U+001F + v, sorted byte-ascending.
func canonicalCustomSection(custom map[string]string) string {
	parts := make([]string, 0, len(custom))
	for k, v := range custom {
		parts = append(parts, strings.ToUpper(k)+keyPairSep+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, keyPairSep)
}

// canonicalValues uppercases each value and, for multi-valued fields, sorts
// the result byte-ascending so that value order never affects the key.
func canonicalValues(values []string) string {
	if len(values) == 0 {
		return ""
	}
	up := make([]string, len(values))
	for i, v := range values {
		up[i] = strings.ToUpper(v)
	}
	if len(up) > 1 {
		sort.Strings(up)
	}
	return strings.Join(up, ",")
}
