package state

import (
	"github.com/haukened/navguard/internal/guard/domain"
)

// Well-known persistence keys.
const (
	KeySettings   = "settings"
	KeyWhitelist  = "whitelist"
	KeyBlacklist  = "blacklist"
	KeyStatistics = "statistics"
)

// Store is the durable key-value backend (bbolt in production).
// Get reports found=false for a missing key; it only errors on I/O failure.
// SetMany writes every pair in one transaction: all or nothing.
type Store interface {
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
	SetMany(values map[string][]byte) error
	Close() error
}

// BloomFilter is the minimal interface the list repository needs from a
// Bloom filter.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
	Clear()
}

// BloomFactory constructs filters sized for a dataset.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// ListChecker answers membership questions for the policy engine.
type ListChecker interface {
	Contains(kind domain.ListKind, host string) bool
}

// listKey maps a list kind to its persistence key.
func listKey(kind domain.ListKind) string {
	if kind == domain.Whitelist {
		return KeyWhitelist
	}
	return KeyBlacklist
}
