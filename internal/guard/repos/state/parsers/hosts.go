package parsers

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/urlutil"
)

// ParseHostsFile parses /etc/hosts-style blocklists ("0.0.0.0 bad.example").
//
// Rules:
// - Ignore the IP field; take every hostname after it
// - Skip comments (whole-line or inline) and blank lines
// - Skip wildcard tokens and names starting with '.'
// - Skip localhost-style single labels; de-duplicate preserving order
func ParseHostsFile(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := dedupe{}
	out := make([]string, 0, 256)

	logger.Debug(map[string]any{"source": source}, "parse_hosts_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}

		fields := strings.Fields(stripInlineComment(line))
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostnames")
			continue
		}

		for _, raw := range fields[1:] {
			if strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
				continue
			}
			name := urlutil.CanonicalHost(raw)
			if !isValidFQDN(name) {
				logger.Debug(map[string]any{"line": lineNum, "name": name}, "hosts_skip_invalid_fqdn")
				continue
			}
			if !seen.add(name) {
				continue
			}
			out = append(out, name)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_hosts_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_hosts_done")
	return out, nil
}
