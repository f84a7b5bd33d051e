// Package parsers turns list files (plain, hosts, YAML seed) into canonical
// domain names ready for the list repository.
package parsers

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/haukened/navguard/internal/guard/common/urlutil"
)

// Format names a supported input format.
type Format string

const (
	FormatPlain Format = "plain"
	FormatHosts Format = "hosts"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts a format name, case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPlain, FormatHosts, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported list format: %q", s)
	}
}

// isValidFQDN checks the name is at most 255 chars, has at least two labels,
// every label is 1..63 chars, and the first label starts alphanumeric.
func isValidFQDN(name string) bool {
	if len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || len(label) == 0 {
			return false
		}
	}
	first := []rune(labels[0])
	if !isAlphaNumeric(first[0]) {
		return false
	}
	return !strings.ContainsAny(name, " \t/\\?#@:")
}

// normalizeDomainName trims whitespace, drops leading "*." or "." markers
// and canonicalizes the host. List matching is exact, so a suffix marker
// only ever names the apex.
func normalizeDomainName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	return urlutil.CanonicalHost(name)
}

func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stripLineBOM removes a UTF-8 byte order mark at the start of a line.
func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports whether a line is blank or a whole-line comment.
func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#")
}

// stripInlineComment cuts everything from the first '#'.
func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// dedupe keeps the first occurrence of each name, preserving order.
type dedupe map[string]struct{}

func (d dedupe) add(name string) bool {
	if _, ok := d[name]; ok {
		return false
	}
	d[name] = struct{}{}
	return true
}
