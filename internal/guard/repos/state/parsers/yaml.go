package parsers

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	logpkg "github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
)

// Seed is the YAML document used for first-run seeding and bulk import:
//
//	whitelist:
//	  - intranet.example
//	blacklist:
//	  - https://phish.example/login
type Seed struct {
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`
}

// Entries returns the cleaned entries for one list.
func (s Seed) Entries(kind domain.ListKind) []string {
	if kind == domain.Whitelist {
		return s.Whitelist
	}
	return s.Blacklist
}

// ParseSeed decodes a YAML seed document. Invalid entries are dropped and
// both lists are de-duplicated. An empty document yields an empty Seed.
func ParseSeed(r io.Reader, source string, logger logpkg.Logger) (Seed, error) {
	var raw Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_seed_error")
		return Seed{}, fmt.Errorf("decode seed %s: %w", source, err)
	}

	out := Seed{
		Whitelist: cleanEntries(raw.Whitelist, source, "whitelist", logger),
		Blacklist: cleanEntries(raw.Blacklist, source, "blacklist", logger),
	}
	logger.Debug(map[string]any{
		"source":    source,
		"whitelist": len(out.Whitelist),
		"blacklist": len(out.Blacklist),
	}, "parse_seed_done")
	return out, nil
}

func cleanEntries(in []string, source, list string, logger logpkg.Logger) []string {
	seen := dedupe{}
	out := make([]string, 0, len(in))
	for i, raw := range in {
		name, ok := nameFromToken(raw)
		if !ok {
			logger.Debug(map[string]any{"source": source, "list": list, "index": i, "raw": raw}, "skip_invalid_domain")
			continue
		}
		if seen.add(name) {
			out = append(out, name)
		}
	}
	return out
}
