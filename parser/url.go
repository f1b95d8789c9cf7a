package parser

import (
	"net/url"
	"strings"
)

// NormalizeURL resolves protocol-relative, root-relative and path-relative
// candidates against base. Absolute candidates are returned unchanged.
func NormalizeURL(candidate, base string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	if ref.IsAbs() && ref.Host != "" {
		return candidate
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return candidate
	}
	return baseURL.ResolveReference(ref).String()
}

// IsAbsoluteURL reports whether s is an http(s) URL with a host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// StripQuery drops the query string and fragment, used for CDN image URLs
// carrying resize parameters.
func StripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
