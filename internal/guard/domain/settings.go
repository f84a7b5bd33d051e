package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings are the user-tunable policy knobs.
type Settings struct {
	ProtectionEnabled  bool `json:"protectionEnabled"`
	BlockThreshold     int  `json:"blockThreshold" validate:"gte=0,lte=100"`
	WarnThreshold      int  `json:"warnThreshold" validate:"gte=0,lte=100,ltefield=BlockThreshold"`
	AutoBlock          bool `json:"autoBlock"`
	CacheExpirySeconds int  `json:"cacheExpirySeconds" validate:"gte=0"`
}

// DefaultSettings are written on first run.
func DefaultSettings() Settings {
	return Settings{
		ProtectionEnabled:  true,
		BlockThreshold:     70,
		WarnThreshold:      40,
		AutoBlock:          true,
		CacheExpirySeconds: 3600,
	}
}

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate enforces ranges and warnThreshold <= blockThreshold.
func (s Settings) Validate() error {
	if err := settingsValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

// CacheExpiry returns CacheExpirySeconds as a duration.
func (s Settings) CacheExpiry() time.Duration {
	return time.Duration(s.CacheExpirySeconds) * time.Second
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	ProtectionEnabled  *bool `json:"protectionEnabled,omitempty"`
	BlockThreshold     *int  `json:"blockThreshold,omitempty"`
	WarnThreshold      *int  `json:"warnThreshold,omitempty"`
	AutoBlock          *bool `json:"autoBlock,omitempty"`
	CacheExpirySeconds *int  `json:"cacheExpirySeconds,omitempty"`
}

// Apply returns a copy of s with the patch merged in. It does not validate.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.ProtectionEnabled != nil {
		s.ProtectionEnabled = *p.ProtectionEnabled
	}
	if p.BlockThreshold != nil {
		s.BlockThreshold = *p.BlockThreshold
	}
	if p.WarnThreshold != nil {
		s.WarnThreshold = *p.WarnThreshold
	}
	if p.AutoBlock != nil {
		s.AutoBlock = *p.AutoBlock
	}
	if p.CacheExpirySeconds != nil {
		s.CacheExpirySeconds = *p.CacheExpirySeconds
	}
	return s
}
