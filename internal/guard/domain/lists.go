package domain

import (
	"fmt"
	"strings"
)

// ListKind selects the whitelist or the blacklist.
type ListKind uint8

const (
	Whitelist ListKind = iota
	Blacklist
)

// String returns a stable string representation of the list kind.
func (k ListKind) String() string {
	switch k {
	case Whitelist:
		return "whitelist"
	case Blacklist:
		return "blacklist"
	default:
		return fmt.Sprintf("ListKind(%d)", k)
	}
}

// Other returns the opposite list.
func (k ListKind) Other() ListKind {
	if k == Whitelist {
		return Blacklist
	}
	return Whitelist
}

// ParseListKind accepts "whitelist"/"white"/"allow" and
// "blacklist"/"black"/"deny" (case-insensitive).
func ParseListKind(s string) (ListKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "whitelist", "white", "allow", "allowlist":
		return Whitelist, nil
	case "blacklist", "black", "deny", "denylist", "block", "blocklist":
		return Blacklist, nil
	default:
		return 0, fmt.Errorf("unsupported list: %q", s)
	}
}

// Lists is a snapshot of both domain sets, sorted.
type Lists struct {
	Whitelist []string `json:"whitelist"`
	Blacklist []string `json:"blacklist"`
}
