// Package urlutil holds the small URL and host helpers shared by the policy,
// list and interception layers.
package urlutil

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var (
	// ErrNoHost is returned when a URL parses but carries no host component.
	ErrNoHost = errors.New("url has no host")
	// ErrInvalidDomain is returned when list input cannot be reduced to a domain.
	ErrInvalidDomain = errors.New("invalid domain")
)

// CanonicalHost returns a host in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot
func CanonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return host
}

// IsWebScheme reports whether scheme is one the engine evaluates.
func IsWebScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// ExtractDomain parses raw and returns its canonical host.
func ExtractDomain(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	host := CanonicalHost(u.Hostname())
	if host == "" {
		return "", ErrNoHost
	}
	return host, nil
}

// HostPort returns the canonical host, with ":port" appended when the URL
// names one explicitly.
func HostPort(u *url.URL) string {
	host := CanonicalHost(u.Hostname())
	if p := u.Port(); p != "" {
		return host + ":" + p
	}
	return host
}

// SameOrigin reports whether a and b share scheme, host and port. A port
// equal to the scheme's default is treated as absent. Unparseable or
// host-less input never matches.
func SameOrigin(a, b string) bool {
	oa, ok := origin(a)
	if !ok {
		return false
	}
	ob, ok := origin(b)
	return ok && oa == ob
}

func origin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := CanonicalHost(u.Hostname())
	if host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	switch {
	case scheme == "http" && port == "80", scheme == "https" && port == "443":
		port = ""
	}
	return scheme + "://" + host + ":" + port, true
}

// Resolve resolves ref against base. An empty ref yields base.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	if ref == "" {
		return b.String(), nil
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// RegistrableDomain returns the eTLD+1 for host, falling back to host itself
// when the public suffix list has no answer (IP literals, single labels).
func RegistrableDomain(host string) string {
	host = CanonicalHost(host)
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}

// DomainFromInput turns user list input into a canonical domain. Input may be
// a bare domain ("Example.COM.") or a full URL ("https://example.com/x").
func DomainFromInput(in string) (string, error) {
	in = strings.TrimSpace(in)
	if strings.Contains(in, "://") {
		return ExtractDomain(in)
	}
	d := CanonicalHost(in)
	if d == "" || strings.ContainsAny(d, " /\\?#@") {
		return "", ErrInvalidDomain
	}
	for _, label := range strings.Split(d, ".") {
		if label == "" || len(label) > 63 {
			return "", ErrInvalidDomain
		}
	}
	return d, nil
}
