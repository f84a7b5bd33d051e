package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Scoring errors shared by the classifier gateway and the policy engine.
var (
	ErrUnscorableURL      = errors.New("url cannot be scored")
	ErrScoringUnavailable = errors.New("risk scoring unavailable")
)

// RiskLevel is the classifier's coarse verdict for a URL.
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskSuspicious RiskLevel = "suspicious"
	RiskDangerous  RiskLevel = "dangerous"
)

// MaxRiskScore is the top of the 0..100 scale. Blacklisted domains are
// reported at this score.
const MaxRiskScore = 100

// ParseRiskLevel converts a string into a RiskLevel (case-insensitive).
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskSafe:
		return RiskSafe, nil
	case RiskSuspicious:
		return RiskSuspicious, nil
	case RiskDangerous:
		return RiskDangerous, nil
	default:
		return "", fmt.Errorf("unsupported risk level: %q", s)
	}
}

// Assessment is a single classifier result.
type Assessment struct {
	Level RiskLevel `json:"riskLevel"`
	Score int       `json:"riskScore"`
}

// NewAssessment validates and constructs an Assessment.
func NewAssessment(level string, score int) (Assessment, error) {
	lvl, err := ParseRiskLevel(level)
	if err != nil {
		return Assessment{}, err
	}
	if score < 0 || score > MaxRiskScore {
		return Assessment{}, fmt.Errorf("risk score %d out of range [0,%d]", score, MaxRiskScore)
	}
	return Assessment{Level: lvl, Score: score}, nil
}
