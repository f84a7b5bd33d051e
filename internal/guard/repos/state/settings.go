package state

import (
	"sync"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
)

// SettingsRepo owns the current Settings. Updates are validated and persisted
// under the lock before they become visible to readers.
type SettingsRepo struct {
	mu      sync.RWMutex
	store   Store
	logger  log.Logger
	current domain.Settings
}

// NewSettingsRepo loads persisted settings, falling back to defaults when
// nothing valid is stored. Defaults are written on first run; a failed write
// is logged and the in-memory defaults are still used.
func NewSettingsRepo(store Store, logger log.Logger) *SettingsRepo {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	r := &SettingsRepo{store: store, logger: logger, current: domain.DefaultSettings()}

	loaded := domain.DefaultSettings()
	if Load(store, KeySettings, &loaded, logger) {
		if err := loaded.Validate(); err != nil {
			logger.Warn(map[string]any{"error": err}, "stored settings invalid, using defaults")
		} else {
			r.current = loaded
			return r
		}
	}
	if err := Save(store, KeySettings, r.current); err != nil {
		logger.Warn(map[string]any{"error": err}, "could not write default settings")
	}
	return r
}

// Get returns the current settings by value.
func (r *SettingsRepo) Get() domain.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Update merges patch into the current settings. A validation error wraps
// domain.ErrInvalidSettings; a write failure wraps ErrPersistence. On error
// the previous settings stay in effect.
func (r *SettingsRepo) Update(patch domain.SettingsPatch) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := patch.Apply(r.current)
	if err := next.Validate(); err != nil {
		return r.current, err
	}
	if err := Save(r.store, KeySettings, next); err != nil {
		return r.current, err
	}
	r.current = next
	r.logger.Info(map[string]any{
		"protection_enabled": next.ProtectionEnabled,
		"block_threshold":    next.BlockThreshold,
		"warn_threshold":     next.WarnThreshold,
		"auto_block":         next.AutoBlock,
		"cache_expiry_s":     next.CacheExpirySeconds,
	}, "settings updated")
	return next, nil
}
