// Package policy turns a URL into an allow, warn or block Decision.
package policy

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/haukened/navguard/internal/guard/common/urlutil"
	"github.com/haukened/navguard/internal/guard/domain"
)

// Inputs bundles everything one evaluation reads. Lookup may be nil to
// bypass the cache; Store may be nil to skip writing results back.
type Inputs struct {
	Settings      domain.Settings
	InternalHosts map[string]struct{}
	Whitelisted   func(host string) bool
	Blacklisted   func(host string) bool
	Lookup        func(url string) (domain.ThreatEntry, bool)
	Store         func(url string, a domain.Assessment)
	Classify      func(ctx context.Context, url string) (domain.Assessment, error)
	Now           time.Time
}

// Evaluate applies the policy rules in priority order; the first match
// wins. It never fails: classifier trouble resolves to allow.
func Evaluate(ctx context.Context, rawURL string, in Inputs) domain.Decision {
	host, internal := classifyTarget(rawURL, in.InternalHosts)
	if internal {
		return domain.AllowDecision(rawURL, host, domain.ReasonInternalURL, in.Now)
	}
	if !in.Settings.ProtectionEnabled {
		return domain.AllowDecision(rawURL, host, domain.ReasonProtectionDisabled, in.Now)
	}
	if in.Whitelisted != nil && in.Whitelisted(host) {
		return domain.AllowDecision(rawURL, host, domain.ReasonWhitelisted, in.Now)
	}
	if in.Blacklisted != nil && in.Blacklisted(host) {
		return domain.Decision{
			URL:       rawURL,
			Domain:    host,
			Action:    domain.ActionBlock,
			Reason:    domain.ReasonBlacklisted,
			Risk:      &domain.Assessment{Level: domain.RiskDangerous, Score: domain.MaxRiskScore},
			Timestamp: in.Now,
		}
	}
	if in.Lookup != nil {
		if e, ok := in.Lookup(rawURL); ok {
			return applyThresholds(rawURL, host, e.Assessment, true, in.Settings, in.Now)
		}
	}

	a, err := in.Classify(ctx, rawURL)
	switch {
	case errors.Is(err, domain.ErrUnscorableURL):
		return domain.AllowDecision(rawURL, host, domain.ReasonInternalURL, in.Now)
	case err != nil:
		return domain.AllowDecision(rawURL, host, domain.ReasonAPIError, in.Now)
	}
	if in.Store != nil {
		in.Store(rawURL, a)
	}
	return applyThresholds(rawURL, host, a, false, in.Settings, in.Now)
}

// applyThresholds maps a score onto an action. Blocking needs AutoBlock;
// without it a high score only warns.
func applyThresholds(rawURL, host string, a domain.Assessment, fromCache bool, s domain.Settings, now time.Time) domain.Decision {
	d := domain.Decision{URL: rawURL, Domain: host, Risk: &a, FromCache: fromCache, Timestamp: now}
	switch {
	case a.Score >= s.BlockThreshold && s.AutoBlock:
		d.Action, d.Reason = domain.ActionBlock, domain.ReasonHighRisk
	case a.Score >= s.WarnThreshold:
		d.Action, d.Reason = domain.ActionWarn, domain.ReasonSuspicious
	default:
		d.Action, d.Reason = domain.ActionAllow, domain.ReasonSafe
	}
	return d
}

// classifyTarget extracts the canonical host and reports whether the URL is
// internal: unparseable, hostless, a non-web scheme, or a configured
// internal host[:port].
func classifyTarget(rawURL string, internalHosts map[string]struct{}) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", true
	}
	host := urlutil.CanonicalHost(u.Hostname())
	if !urlutil.IsWebScheme(u.Scheme) || host == "" {
		return host, true
	}
	if _, ok := internalHosts[urlutil.HostPort(u)]; ok {
		return host, true
	}
	if _, ok := internalHosts[host]; ok {
		return host, true
	}
	return host, false
}

// InternalHostSet canonicalizes configured host[:port] entries.
func InternalHostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h = urlutil.CanonicalHost(h); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}
