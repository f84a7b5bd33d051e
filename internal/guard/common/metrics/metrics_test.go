package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue gathers reg and returns the value of the named counter whose
// labels include all of want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_CountersRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Decision("block", "high_risk")
	m.Decision("block", "high_risk")
	m.Decision("allow", "safe")
	m.ClassifierCall("ok", 30*time.Millisecond)
	m.CacheLookup("hit")
	m.Intercept("form", "warned")
	m.StaleResult()

	assert.Equal(t, 2.0, counterValue(t, reg, "navguard_decisions_total", map[string]string{"action": "block", "reason": "high_risk"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "navguard_decisions_total", map[string]string{"action": "allow", "reason": "safe"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "navguard_classifier_requests_total", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "navguard_threat_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "navguard_intercepts_total", map[string]string{"kind": "form", "state": "warned"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "navguard_stale_results_total", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["navguard_classifier_request_duration_seconds"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Decision("allow", "safe")
	m.ClassifierCall("error", time.Second)
	m.CacheLookup("miss")
	m.Intercept("link", "allowed")
	m.StaleResult()
}

func TestMetrics_NilRegistererSkipsRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		a := New(nil)
		b := New(nil)
		a.Decision("warn", "suspicious")
		b.Decision("warn", "suspicious")
	})
}
