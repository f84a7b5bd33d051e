// Package interceptor decides, per browser tab, whether an intercepted
// navigation, link click or form submission may go ahead.
package interceptor

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/metrics"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/repos/tabcache"
	"github.com/haukened/navguard/internal/guard/services/policy"
)

var (
	// ErrSuperseded means the tab moved on before the evaluation finished.
	// The late result was discarded.
	ErrSuperseded = errors.New("evaluation superseded")
	// ErrUnknownIntercept means no intercept with that ID is held.
	ErrUnknownIntercept = errors.New("unknown intercept")
	// ErrUnknownTab means the tab has no page or decision on record.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrScanIncomplete means a manual rescan could not reach the classifier.
	ErrScanIncomplete = errors.New("could not complete scan")
	// ErrSettingsSave means a settings update was rejected or not persisted.
	ErrSettingsSave = errors.New("could not save settings")
)

const defaultInterceptCapacity = 1024

// Evaluator produces a policy decision for one URL.
type Evaluator interface {
	Evaluate(ctx context.Context, url string, opts ...policy.EvalOption) domain.Decision
}

// StatsRecorder counts decisions.
type StatsRecorder interface {
	Record(d domain.Decision) error
	Snapshot() domain.Statistics
	Reset() error
}

// SettingsStore reads and updates settings.
type SettingsStore interface {
	Get() domain.Settings
	Update(patch domain.SettingsPatch) (domain.Settings, error)
}

// ListStore mutates the whitelist and blacklist.
type ListStore interface {
	Add(kind domain.ListKind, input string) (string, error)
	Remove(kind domain.ListKind, input string) (bool, error)
	Snapshot() domain.Lists
}

// CachePurger clears cached classifier verdicts.
type CachePurger interface {
	Purge()
}

// Options wires a Coordinator. Engine, Stats, Settings, Lists and Cache are
// required.
type Options struct {
	Engine            Evaluator
	Stats             StatsRecorder
	Settings          SettingsStore
	Lists             ListStore
	Cache             CachePurger
	Tabs              tabcache.Cache
	Presenter         Presenter
	InterceptCapacity int
	Clock             clock.Clock
	Logger            log.Logger
	Metrics           *metrics.Metrics
}

// tab is the per-tab owner record. Each main-frame navigation bumps
// generation and cancels ctx, which every in-flight evaluation derives from.
type tab struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	pageURL    string
}

// Coordinator hooks navigation, link and form events and tracks the
// resulting intercepts.
type Coordinator struct {
	engine    Evaluator
	stats     StatsRecorder
	settings  SettingsStore
	lists     ListStore
	cache     CachePurger
	decisions tabcache.Cache
	presenter Presenter
	clock     clock.Clock
	logger    log.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	tabs       map[int]*tab
	intercepts *lru.Cache[string, *domain.Intercept]
}

// New validates opts and returns a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Engine == nil || opts.Stats == nil || opts.Settings == nil || opts.Lists == nil || opts.Cache == nil {
		return nil, errors.New("coordinator requires engine, stats, settings, lists and cache")
	}
	if opts.Tabs == nil {
		tabs, err := tabcache.New(0)
		if err != nil {
			return nil, err
		}
		opts.Tabs = tabs
	}
	if opts.Presenter == nil {
		opts.Presenter = discardPresenter{}
	}
	if opts.InterceptCapacity <= 0 {
		opts.InterceptCapacity = defaultInterceptCapacity
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	intercepts, err := lru.New[string, *domain.Intercept](opts.InterceptCapacity)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		engine:     opts.Engine,
		stats:      opts.Stats,
		settings:   opts.Settings,
		lists:      opts.Lists,
		cache:      opts.Cache,
		decisions:  opts.Tabs,
		presenter:  opts.Presenter,
		clock:      opts.Clock,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tabs:       make(map[int]*tab),
		intercepts: intercepts,
	}, nil
}

// dispatch captures the tab's generation. With bump set it starts a new
// generation first, cancelling whatever the tab had in flight.
func (c *Coordinator) dispatch(tabID int, bump bool) (uint64, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tabs[tabID]
	if !ok {
		t = &tab{}
		t.ctx, t.cancel = context.WithCancel(context.Background())
		c.tabs[tabID] = t
	}
	if bump {
		t.cancel()
		t.generation++
		t.ctx, t.cancel = context.WithCancel(context.Background())
	}
	return t.generation, t.ctx
}

// isCurrentLocked reports whether gen is still the tab's live generation.
func (c *Coordinator) isCurrentLocked(tabID int, gen uint64) bool {
	t, ok := c.tabs[tabID]
	return ok && t.generation == gen
}

// evaluate runs the engine in its own goroutine and hands the result back
// over a buffered channel. A result whose generation is no longer current
// is dropped with ErrSuperseded; the caller must not act on it.
func (c *Coordinator) evaluate(ctx context.Context, tabID int, gen uint64, tabCtx context.Context, url string, opts ...policy.EvalOption) (domain.Decision, error) {
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(tabCtx, cancel)
	defer stop()

	results := make(chan domain.Decision, 1)
	go func() {
		results <- c.engine.Evaluate(ectx, url, opts...)
	}()

	var d domain.Decision
	select {
	case d = <-results:
	case <-ectx.Done():
	}
	if err := ctx.Err(); err != nil {
		return domain.Decision{}, err
	}

	c.mu.Lock()
	current := c.isCurrentLocked(tabID, gen) && tabCtx.Err() == nil
	c.mu.Unlock()
	if !current {
		c.metrics.StaleResult()
		c.logger.Debug(map[string]any{"tab": tabID, "generation": gen, "url": url}, "discarding stale evaluation")
		return domain.Decision{}, ErrSuperseded
	}
	return d, nil
}

// commit records an evaluated decision: stats, the intercept record and,
// for page-level decisions, the tab's badge state. Stats failures are
// logged; the decision stands.
func (c *Coordinator) commit(tabID int, gen uint64, kind domain.InterceptKind, d domain.Decision, pageLevel bool) (*domain.Intercept, error) {
	now := c.clock.Now()
	c.mu.Lock()
	if !c.isCurrentLocked(tabID, gen) {
		c.mu.Unlock()
		c.metrics.StaleResult()
		return nil, ErrSuperseded
	}
	ic := domain.NewIntercept(tabID, kind, d.URL, now)
	if err := ic.Resolve(d, now); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.intercepts.Add(ic.ID, ic)
	if pageLevel {
		c.tabs[tabID].pageURL = d.URL
		c.decisions.Put(tabID, d)
	}
	out := ic.Clone()
	c.mu.Unlock()

	if err := c.stats.Record(d); err != nil {
		c.logger.Warn(map[string]any{"tab": tabID, "error": err}, "could not persist statistics")
	}
	c.metrics.Intercept(string(kind), string(out.State))
	c.logger.Info(map[string]any{
		"tab":       tabID,
		"intercept": out.ID,
		"kind":      string(kind),
		"url":       d.URL,
		"action":    string(d.Action),
		"reason":    string(d.Reason),
		"score":     d.Score(),
	}, "intercept resolved")
	return &out, nil
}

func (c *Coordinator) present(n *domain.Notice) {
	if n != nil {
		c.presenter.Present(*n)
	}
}
