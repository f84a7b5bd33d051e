package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestSettingsRepo_FirstRunWritesDefaults(t *testing.T) {
	s := newMemStore()
	r := NewSettingsRepo(s, log.NewNoopLogger())
	assert.Equal(t, domain.DefaultSettings(), r.Get())
	assert.JSONEq(t, `{"protectionEnabled":true,"blockThreshold":70,"warnThreshold":40,"autoBlock":true,"cacheExpirySeconds":3600}`, s.raw(KeySettings))
}

func TestSettingsRepo_LoadsPersisted(t *testing.T) {
	s := newMemStore()
	s.data[KeySettings] = []byte(`{"protectionEnabled":false,"blockThreshold":90,"warnThreshold":20,"autoBlock":false,"cacheExpirySeconds":60}`)
	r := NewSettingsRepo(s, nil)
	got := r.Get()
	assert.False(t, got.ProtectionEnabled)
	assert.Equal(t, 90, got.BlockThreshold)
	assert.Equal(t, 60, got.CacheExpirySeconds)
}

func TestSettingsRepo_InvalidPersistedFallsBack(t *testing.T) {
	s := newMemStore()
	s.data[KeySettings] = []byte(`{"blockThreshold":30,"warnThreshold":50}`)
	r := NewSettingsRepo(s, nil)
	assert.Equal(t, domain.DefaultSettings(), r.Get())
}

func TestSettingsRepo_ReadFailureUsesDefaults(t *testing.T) {
	s := newMemStore()
	s.failGet = true
	r := NewSettingsRepo(s, nil)
	assert.Equal(t, domain.DefaultSettings(), r.Get())
}

func TestSettingsRepo_Update(t *testing.T) {
	s := newMemStore()
	r := NewSettingsRepo(s, nil)

	got, err := r.Update(domain.SettingsPatch{BlockThreshold: intp(85), AutoBlock: boolp(false)})
	require.NoError(t, err)
	assert.Equal(t, 85, got.BlockThreshold)
	assert.False(t, got.AutoBlock)
	assert.Equal(t, got, r.Get())
	assert.Contains(t, s.raw(KeySettings), `"blockThreshold":85`)
}

func TestSettingsRepo_UpdateRejectsInvalid(t *testing.T) {
	s := newMemStore()
	r := NewSettingsRepo(s, nil)
	before := s.setCalls

	_, err := r.Update(domain.SettingsPatch{WarnThreshold: intp(95)})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	assert.Equal(t, domain.DefaultSettings(), r.Get())
	assert.Equal(t, before, s.setCalls, "invalid settings must not be persisted")
}

func TestSettingsRepo_UpdatePersistenceFailure(t *testing.T) {
	s := newMemStore()
	r := NewSettingsRepo(s, nil)
	s.failSet = true

	got, err := r.Update(domain.SettingsPatch{ProtectionEnabled: boolp(false)})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.True(t, got.ProtectionEnabled)
	assert.True(t, r.Get().ProtectionEnabled, "failed save must not publish")
}
