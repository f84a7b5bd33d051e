// Package metrics exposes navguard's Prometheus collectors. Every method is
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "navguard"

// Metrics bundles the collectors shared across components.
type Metrics struct {
	decisions         *prometheus.CounterVec
	classifierCalls   *prometheus.CounterVec
	classifierLatency prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	intercepts        *prometheus.CounterVec
	staleResults      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Policy decisions by action and reason.",
		}, []string{"action", "reason"}),
		classifierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Remote classifier calls by outcome.",
		}, []string{"outcome"}),
		classifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "request_duration_seconds",
			Help:      "Remote classifier call latency.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "threat_cache",
			Name:      "lookups_total",
			Help:      "Threat cache lookups by result (hit, miss, expired).",
		}, []string{"result"}),
		intercepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intercepts_total",
			Help:      "Intercepted browser actions by surface and resulting state.",
		}, []string{"kind", "state"}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Evaluations discarded because their tab moved on.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.classifierCalls, m.classifierLatency, m.cacheLookups, m.intercepts, m.staleResults)
	}
	return m
}

// Decision counts one decision.
func (m *Metrics) Decision(action, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(action, reason).Inc()
}

// ClassifierCall records one remote call and its latency.
func (m *Metrics) ClassifierCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.classifierCalls.WithLabelValues(outcome).Inc()
	m.classifierLatency.Observe(d.Seconds())
}

// CacheLookup counts one threat cache lookup.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Intercept counts one intercept reaching state.
func (m *Metrics) Intercept(kind, state string) {
	if m == nil {
		return
	}
	m.intercepts.WithLabelValues(kind, state).Inc()
}

// StaleResult counts one discarded evaluation.
func (m *Metrics) StaleResult() {
	if m == nil {
		return
	}
	m.staleResults.Inc()
}
