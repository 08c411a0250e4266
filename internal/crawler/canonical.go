package crawler

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// Canonicalize returns the canonical form of an absolute http or https URL.
//
// The canonical form has a lowercase scheme and host, no userinfo, no
// default port, no fragment and no trailing slash except for the root
// path "/". Dot segments are removed. The query is dropped unless keepQuery
// is set, in which case its parameters are sorted. Canonicalize is
// idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u).
func Canonicalize(raw string, keepQuery bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return canonicalizeURL(u, keepQuery)
}

func canonicalizeURL(u *url.URL, keepQuery bool) (string, error) {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Scheme != "http" && c.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if c.Host == "" || c.Opaque != "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, u.String())
	}

	c.User = nil
	c.Host = canonicalHost(c.Scheme, c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	c.ForceQuery = false
	if keepQuery && c.RawQuery != "" {
		c.RawQuery = c.Query().Encode()
	} else {
		c.RawQuery = ""
	}

	c.Path = cleanPath(c.Path)
	if c.RawPath != "" {
		c.RawPath = cleanPath(c.RawPath)
	}

	return c.String(), nil
}

// cleanPath removes dot segments, duplicate slashes and the trailing slash.
// The root and the empty path both become "/".
func cleanPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// canonicalHost lowercases the host and drops the scheme's default port.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

// HostOf returns the canonical host of an absolute URL, or an empty string.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return canonicalHost(strings.ToLower(u.Scheme), u.Host)
}

// SameHost reports whether target is on exactly the given host.
// Subdomains are different hosts.
func SameHost(host, target string) bool {
	h := HostOf(target)
	return h != "" && h == strings.ToLower(host)
}
