package domain

import "time"

// Statistics are the daily counters surfaced to the popup.
type Statistics struct {
	TotalBlocked uint64    `json:"totalBlocked"`
	TotalWarned  uint64    `json:"totalWarned"`
	TotalScanned uint64    `json:"totalScanned"`
	LastReset    time.Time `json:"lastReset"`
}

// CounterKind names one of the Statistics counters.
type CounterKind string

const (
	CounterScanned CounterKind = "scanned"
	CounterWarned  CounterKind = "warned"
	CounterBlocked CounterKind = "blocked"
)

// ThreatEntry is one cached classifier result keyed by exact URL.
// Entries are replaced, never mutated.
type ThreatEntry struct {
	URL        string     `json:"url"`
	Assessment Assessment `json:"assessment"`
	CapturedAt time.Time  `json:"capturedAt"`
}

// Stale reports whether the entry's age exceeds ttl at now.
func (e ThreatEntry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CapturedAt) > ttl
}
