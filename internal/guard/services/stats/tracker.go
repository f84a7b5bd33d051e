// Package stats keeps today's blocked, warned and scanned counters.
package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/metrics"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/repos/state"
)

// Options wires a Tracker. Store is required.
type Options struct {
	Store   state.Store
	Clock   clock.Clock
	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Tracker owns the daily Statistics. Counters reset lazily the first time
// they are touched on a new local calendar day.
type Tracker struct {
	mu      sync.Mutex
	store   state.Store
	clock   clock.Clock
	logger  log.Logger
	metrics *metrics.Metrics
	stats   domain.Statistics
}

// New loads persisted counters. A missing or unreadable value starts a
// fresh day.
func New(opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	t := &Tracker{
		store:   opts.Store,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if !state.Load(opts.Store, state.KeyStatistics, &t.stats, opts.Logger) {
		t.stats = domain.Statistics{LastReset: opts.Clock.Now()}
	}
	return t
}

// Increment bumps one counter. The in-memory count always advances; a
// persistence failure is returned for the caller to log.
func (t *Tracker) Increment(kind domain.CounterKind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked(t.clock.Now())
	if err := t.bumpLocked(kind); err != nil {
		return err
	}
	return t.saveLocked()
}

// Record mirrors d into metrics and applies the counting rule:
//
//	blacklisted              -> blocked
//	high_risk/suspicious/safe -> scanned, plus blocked or warned by action
//
// Every other reason leaves the counters alone and writes nothing.
func (t *Tracker) Record(d domain.Decision) error {
	t.metrics.Decision(string(d.Action), string(d.Reason))

	var kinds []domain.CounterKind
	switch {
	case d.Reason == domain.ReasonBlacklisted:
		kinds = append(kinds, domain.CounterBlocked)
	case d.Reason.Scored():
		kinds = append(kinds, domain.CounterScanned)
		switch d.Action {
		case domain.ActionBlock:
			kinds = append(kinds, domain.CounterBlocked)
		case domain.ActionWarn:
			kinds = append(kinds, domain.CounterWarned)
		}
	default:
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked(t.clock.Now())
	for _, k := range kinds {
		if err := t.bumpLocked(k); err != nil {
			return err
		}
	}
	return t.saveLocked()
}

// Snapshot returns today's counters, rolling the day first if needed.
func (t *Tracker) Snapshot() domain.Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rollLocked(t.clock.Now()) {
		if err := t.saveLocked(); err != nil {
			t.logger.Warn(map[string]any{"error": err}, "could not persist daily statistics reset")
		}
	}
	return t.stats
}

// ResetIfNewDay zeroes the counters when LastReset is before today's local
// midnight. It reports whether a reset happened.
func (t *Tracker) ResetIfNewDay() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.rollLocked(t.clock.Now()) {
		return false, nil
	}
	return true, t.saveLocked()
}

// Reset zeroes the counters unconditionally.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = domain.Statistics{LastReset: t.clock.Now()}
	t.logger.Info(nil, "statistics reset")
	return t.saveLocked()
}

func (t *Tracker) rollLocked(now time.Time) bool {
	if !t.stats.LastReset.Before(clock.StartOfDay(now)) {
		return false
	}
	t.logger.Debug(map[string]any{
		"blocked": t.stats.TotalBlocked,
		"warned":  t.stats.TotalWarned,
		"scanned": t.stats.TotalScanned,
	}, "new day, statistics reset")
	t.stats = domain.Statistics{LastReset: now}
	return true
}

func (t *Tracker) bumpLocked(kind domain.CounterKind) error {
	switch kind {
	case domain.CounterScanned:
		t.stats.TotalScanned++
	case domain.CounterWarned:
		t.stats.TotalWarned++
	case domain.CounterBlocked:
		t.stats.TotalBlocked++
	default:
		return fmt.Errorf("unknown counter %q", kind)
	}
	return nil
}

func (t *Tracker) saveLocked() error {
	return state.Save(t.store, state.KeyStatistics, t.stats)
}
