package policy

import (
	"context"

	"github.com/haukened/navguard/internal/guard/domain"
)

// Classifier scores a URL remotely. Errors wrap domain.ErrUnscorableURL or
// domain.ErrScoringUnavailable.
type Classifier interface {
	Classify(ctx context.Context, url string) (domain.Assessment, error)
}

// ThreatCache holds prior classifier verdicts keyed by exact URL.
type ThreatCache interface {
	Lookup(url string) (domain.ThreatEntry, bool)
	Store(url string, a domain.Assessment)
}

// ListChecker answers whitelist/blacklist membership for a canonical host.
type ListChecker interface {
	Contains(kind domain.ListKind, host string) bool
}

// SettingsSource returns the settings in effect right now.
type SettingsSource interface {
	Get() domain.Settings
}
