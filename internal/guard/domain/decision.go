package domain

import "time"

// Action is the enforcement outcome for one evaluated URL.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Reason explains which policy rule produced a Decision.
type Reason string

const (
	ReasonInternalURL        Reason = "internal_url"
	ReasonProtectionDisabled Reason = "protection_disabled"
	ReasonWhitelisted        Reason = "whitelisted"
	ReasonBlacklisted        Reason = "blacklisted"
	ReasonHighRisk           Reason = "high_risk"
	ReasonSuspicious         Reason = "suspicious"
	ReasonSafe               Reason = "safe"
	ReasonAPIError           Reason = "api_error"
)

// Scored reports whether the reason came out of the threshold step, i.e.
// from a classifier or cache result.
func (r Reason) Scored() bool {
	switch r {
	case ReasonHighRisk, ReasonSuspicious, ReasonSafe:
		return true
	default:
		return false
	}
}

// Decision is the engine's verdict for one URL. Pure value type.
// Risk is nil when no score was involved (internal, whitelisted, api_error).
type Decision struct {
	URL       string      `json:"url"`
	Domain    string      `json:"domain,omitempty"`
	Action    Action      `json:"action"`
	Reason    Reason      `json:"reason"`
	Risk      *Assessment `json:"risk,omitempty"`
	FromCache bool        `json:"fromCache"`
	Timestamp time.Time   `json:"timestamp"`
}

// IsBlocked is a convenience accessor.
func (d Decision) IsBlocked() bool { return d.Action == ActionBlock }

// Score returns the risk score, or -1 when the decision carries none.
func (d Decision) Score() int {
	if d.Risk == nil {
		return -1
	}
	return d.Risk.Score
}

// SameVerdict compares the policy content of two decisions, ignoring
// FromCache and Timestamp.
func (d Decision) SameVerdict(o Decision) bool {
	if d.URL != o.URL || d.Domain != o.Domain || d.Action != o.Action || d.Reason != o.Reason {
		return false
	}
	if (d.Risk == nil) != (o.Risk == nil) {
		return false
	}
	return d.Risk == nil || *d.Risk == *o.Risk
}

// AllowDecision builds an unscored allow decision.
func AllowDecision(url, host string, reason Reason, at time.Time) Decision {
	return Decision{URL: url, Domain: host, Action: ActionAllow, Reason: reason, Timestamp: at}
}
