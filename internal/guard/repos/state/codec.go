package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haukened/navguard/internal/guard/common/log"
)

// ErrPersistence wraps every failed write to the Store.
var ErrPersistence = errors.New("persistence failure")

// Load reads key into dst, decoding over a copy of dst so fields absent from
// the stored value keep the caller's defaults. A missing key, an I/O error
// or undecodable data all leave dst untouched and report false; the latter
// two are logged. Reads never fail the caller.
func Load[T any](s Store, key string, dst *T, logger log.Logger) bool {
	raw, found, err := s.Get(key)
	if err != nil {
		logger.Warn(map[string]any{"key": key, "error": err}, "state read failed, using default")
		return false
	}
	if !found {
		return false
	}
	tmp := *dst
	if err := json.Unmarshal(raw, &tmp); err != nil {
		logger.Warn(map[string]any{"key": key, "error": err}, "state decode failed, using default")
		return false
	}
	*dst = tmp
	return true
}

// Save encodes v and writes it under key. Any failure is wrapped in
// ErrPersistence.
func Save(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersistence, key, err)
	}
	if err := s.Set(key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, key, err)
	}
	return nil
}

// SaveMany encodes every value and writes them in a single Store
// transaction. Any failure is wrapped in ErrPersistence.
func SaveMany(s Store, values map[string]any) error {
	raw := make(map[string][]byte, len(values))
	for key, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrPersistence, key, err)
		}
		raw[key] = b
	}
	if err := s.SetMany(raw); err != nil {
		return fmt.Errorf("%w: write: %w", ErrPersistence, err)
	}
	return nil
}
