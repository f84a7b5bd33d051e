package parsers

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/urlutil"
)

// ParsePlainList parses a newline-delimited list of domains or URLs.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Accepts full URLs and keeps only the host
// - Strips leading "*." or "." markers
// - Skips invalid names and de-duplicates, preserving first-seen order
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := dedupe{}
	out := make([]string, 0, 64)

	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		raw := strings.TrimSpace(stripInlineComment(line))

		name, ok := nameFromToken(raw)
		if !ok {
			logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "skip_invalid_domain")
			continue
		}
		if !seen.add(name) {
			logger.Debug(map[string]any{"line": lineNum, "name": name}, "skip_duplicate")
			continue
		}
		out = append(out, name)
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_plain_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}

// nameFromToken reduces a URL or domain token to a valid canonical name.
func nameFromToken(raw string) (string, bool) {
	var name string
	if strings.Contains(raw, "://") {
		host, err := urlutil.ExtractDomain(raw)
		if err != nil {
			return "", false
		}
		name = host
	} else {
		name = normalizeDomainName(raw)
	}
	if !isValidFQDN(name) {
		return "", false
	}
	return name, true
}
