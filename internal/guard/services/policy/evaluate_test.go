package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/navguard/internal/guard/domain"
)

var now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// fixture is a hand-rolled set of Inputs with call accounting.
type fixture struct {
	settings    domain.Settings
	white       map[string]bool
	black       map[string]bool
	cached      map[string]domain.ThreatEntry
	stored      map[string]domain.Assessment
	result      domain.Assessment
	err         error
	classifyN   int
	internal    map[string]struct{}
	bypassCache bool
}

func newFixture() *fixture {
	return &fixture{
		settings: domain.DefaultSettings(),
		white:    map[string]bool{},
		black:    map[string]bool{},
		cached:   map[string]domain.ThreatEntry{},
		stored:   map[string]domain.Assessment{},
		internal: InternalHostSet([]string{"localhost:3000"}),
	}
}

func (f *fixture) inputs() Inputs {
	in := Inputs{
		Settings:      f.settings,
		InternalHosts: f.internal,
		Whitelisted:   func(h string) bool { return f.white[h] },
		Blacklisted:   func(h string) bool { return f.black[h] },
		Store:         func(u string, a domain.Assessment) { f.stored[u] = a },
		Classify: func(context.Context, string) (domain.Assessment, error) {
			f.classifyN++
			return f.result, f.err
		},
		Now: now,
	}
	if !f.bypassCache {
		in.Lookup = func(u string) (domain.ThreatEntry, bool) {
			e, ok := f.cached[u]
			return e, ok
		}
	}
	return in
}

func (f *fixture) eval(u string) domain.Decision {
	return Evaluate(context.Background(), u, f.inputs())
}

func TestEvaluate_InternalURLs(t *testing.T) {
	for _, u := range []string{
		"chrome://settings",
		"chrome-extension://abc/popup.html",
		"about:blank",
		"edge://flags",
		"moz-extension://x/y",
		"javascript:void(0)",
		"data:text/html,hi",
		"file:///etc/passwd",
		"http://localhost:3000/dashboard",
		"http://LOCALHOST:3000/",
		"https://",
		"::not a url",
		"",
	} {
		t.Run(u, func(t *testing.T) {
			f := newFixture()
			d := f.eval(u)
			assert.Equal(t, domain.ActionAllow, d.Action)
			assert.Equal(t, domain.ReasonInternalURL, d.Reason)
			assert.Nil(t, d.Risk)
			assert.Zero(t, f.classifyN)
		})
	}
}

func TestEvaluate_InternalHostNeedsMatchingPort(t *testing.T) {
	f := newFixture()
	f.result = domain.Assessment{Level: domain.RiskSafe, Score: 1}
	d := f.eval("http://localhost:8080/")
	assert.Equal(t, domain.ReasonSafe, d.Reason)
}

func TestEvaluate_ProtectionDisabled(t *testing.T) {
	f := newFixture()
	f.settings.ProtectionEnabled = false
	f.black["evil.example"] = true
	d := f.eval("https://evil.example/")
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, domain.ReasonProtectionDisabled, d.Reason)
	assert.Zero(t, f.classifyN)
}

func TestEvaluate_WhitelistShortCircuits(t *testing.T) {
	f := newFixture()
	f.white["trusted.example"] = true
	f.black["trusted.example"] = true
	f.result = domain.Assessment{Level: domain.RiskDangerous, Score: 95}

	d := f.eval("https://Trusted.Example/x")
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, domain.ReasonWhitelisted, d.Reason)
	assert.Equal(t, "trusted.example", d.Domain)
	assert.Zero(t, f.classifyN, "classifier must not be invoked")
}

func TestEvaluate_BlacklistBeatsCache(t *testing.T) {
	f := newFixture()
	f.black["evil.example"] = true
	f.cached["https://evil.example/"] = domain.ThreatEntry{Assessment: domain.Assessment{Level: domain.RiskSafe, Score: 3}}

	d := f.eval("https://evil.example/")
	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Equal(t, domain.ReasonBlacklisted, d.Reason)
	require.NotNil(t, d.Risk)
	assert.Equal(t, domain.Assessment{Level: domain.RiskDangerous, Score: 100}, *d.Risk)
	assert.False(t, d.FromCache)
	assert.Zero(t, f.classifyN)
}

func TestEvaluate_CacheHit(t *testing.T) {
	f := newFixture()
	f.cached["https://a.example/"] = domain.ThreatEntry{Assessment: domain.Assessment{Level: domain.RiskSuspicious, Score: 50}}
	d := f.eval("https://a.example/")
	assert.Equal(t, domain.ActionWarn, d.Action)
	assert.True(t, d.FromCache)
	assert.Zero(t, f.classifyN)
}

func TestEvaluate_CacheBypass(t *testing.T) {
	f := newFixture()
	f.bypassCache = true
	f.cached["https://a.example/"] = domain.ThreatEntry{Assessment: domain.Assessment{Level: domain.RiskSafe, Score: 5}}
	f.result = domain.Assessment{Level: domain.RiskDangerous, Score: 90}

	d := f.eval("https://a.example/")
	assert.Equal(t, domain.ReasonHighRisk, d.Reason)
	assert.False(t, d.FromCache)
	assert.Equal(t, 1, f.classifyN)
	assert.Equal(t, 90, f.stored["https://a.example/"].Score)
}

func TestEvaluate_ClassifierResultIsCached(t *testing.T) {
	f := newFixture()
	f.result = domain.Assessment{Level: domain.RiskSafe, Score: 12}
	d := f.eval("https://a.example/")
	assert.Equal(t, domain.ReasonSafe, d.Reason)
	assert.Equal(t, f.result, f.stored["https://a.example/"])
}

func TestEvaluate_FailOpen(t *testing.T) {
	f := newFixture()
	f.err = fmt.Errorf("%w: status 503", domain.ErrScoringUnavailable)
	d := f.eval("https://a.example/")
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, domain.ReasonAPIError, d.Reason)
	assert.Nil(t, d.Risk)
	assert.Empty(t, f.stored, "failures are never cached")

	f.err = errors.New("unexpected")
	assert.Equal(t, domain.ReasonAPIError, f.eval("https://b.example/").Reason)
}

func TestEvaluate_InvalidInputFailsOpenAsInternal(t *testing.T) {
	f := newFixture()
	f.err = fmt.Errorf("%w: bad", domain.ErrUnscorableURL)
	d := f.eval("https://a.example/")
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, domain.ReasonInternalURL, d.Reason)
	assert.Empty(t, f.stored)
}

func TestEvaluate_ThresholdBoundaries(t *testing.T) {
	tests := []struct {
		score     int
		autoBlock bool
		action    domain.Action
		reason    domain.Reason
	}{
		{70, true, domain.ActionBlock, domain.ReasonHighRisk},
		{69, true, domain.ActionWarn, domain.ReasonSuspicious},
		{40, true, domain.ActionWarn, domain.ReasonSuspicious},
		{39, true, domain.ActionAllow, domain.ReasonSafe},
		{0, true, domain.ActionAllow, domain.ReasonSafe},
		{100, false, domain.ActionWarn, domain.ReasonSuspicious},
		{70, false, domain.ActionWarn, domain.ReasonSuspicious},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("score=%d,auto=%v", tt.score, tt.autoBlock), func(t *testing.T) {
			f := newFixture()
			f.settings.AutoBlock = tt.autoBlock
			f.result = domain.Assessment{Level: domain.RiskSuspicious, Score: tt.score}
			d := f.eval("https://a.example/")
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.score, d.Score())
		})
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	f := newFixture()
	f.result = domain.Assessment{Level: domain.RiskDangerous, Score: 85}
	d := f.eval("https://evil.example/login")
	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Equal(t, domain.ReasonHighRisk, d.Reason)
	assert.Equal(t, 85, d.Score())

	f.result = domain.Assessment{Level: domain.RiskSuspicious, Score: 50}
	d = f.eval("https://maybe.example")
	assert.Equal(t, domain.ActionWarn, d.Action)
	assert.Equal(t, domain.ReasonSuspicious, d.Reason)

	f.white["trusted.example"] = true
	f.result = domain.Assessment{Level: domain.RiskDangerous, Score: 95}
	d = f.eval("https://trusted.example/x")
	assert.Equal(t, domain.ActionAllow, d.Action)
	assert.Equal(t, domain.ReasonWhitelisted, d.Reason)
}

func TestInternalHostSet(t *testing.T) {
	set := InternalHostSet([]string{" LocalHost:3000 ", "", "intranet.example."})
	assert.Len(t, set, 2)
	assert.Contains(t, set, "localhost:3000")
	assert.Contains(t, set, "intranet.example")
}
