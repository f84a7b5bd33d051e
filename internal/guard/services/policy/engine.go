package policy

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
)

// Options wires an Engine. Settings, Lists, Cache and Classifier are required.
type Options struct {
	Settings      SettingsSource
	Lists         ListChecker
	Cache         ThreatCache
	Classifier    Classifier
	InternalHosts []string
	Clock         clock.Clock
	Logger        log.Logger
}

// Engine binds live settings, lists, cache and classifier into Evaluate.
type Engine struct {
	settings   SettingsSource
	lists      ListChecker
	cache      ThreatCache
	classifier Classifier
	internal   map[string]struct{}
	clock      clock.Clock
	logger     log.Logger
	inflight   singleflight.Group
}

// EvalOption adjusts a single evaluation.
type EvalOption func(*evalConfig)

type evalConfig struct {
	skipCache bool
}

// SkipCache forces a fresh classifier call. The result is still cached.
func SkipCache() EvalOption {
	return func(c *evalConfig) { c.skipCache = true }
}

// NewEngine validates opts and returns an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Settings == nil || opts.Lists == nil || opts.Cache == nil || opts.Classifier == nil {
		return nil, errors.New("policy engine requires settings, lists, cache and classifier")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Engine{
		settings:   opts.Settings,
		lists:      opts.Lists,
		cache:      opts.Cache,
		classifier: opts.Classifier,
		internal:   InternalHostSet(opts.InternalHosts),
		clock:      opts.Clock,
		logger:     opts.Logger,
	}, nil
}

// Evaluate produces the Decision for rawURL under the settings in effect now.
func (e *Engine) Evaluate(ctx context.Context, rawURL string, opts ...EvalOption) domain.Decision {
	var cfg evalConfig
	for _, o := range opts {
		o(&cfg)
	}

	in := Inputs{
		Settings:      e.settings.Get(),
		InternalHosts: e.internal,
		Whitelisted:   func(h string) bool { return e.lists.Contains(domain.Whitelist, h) },
		Blacklisted:   func(h string) bool { return e.lists.Contains(domain.Blacklist, h) },
		Store:         e.cache.Store,
		Classify:      e.classify,
		Now:           e.clock.Now(),
	}
	if !cfg.skipCache {
		in.Lookup = e.cache.Lookup
	}

	d := Evaluate(ctx, rawURL, in)
	e.logger.Debug(map[string]any{
		"url":        rawURL,
		"action":     string(d.Action),
		"reason":     string(d.Reason),
		"score":      d.Score(),
		"from_cache": d.FromCache,
	}, "policy decision")
	return d
}

// classify collapses concurrent calls for the same URL into one request.
// The shared call is detached from any single caller's cancellation; each
// caller still stops waiting when its own context ends.
func (e *Engine) classify(ctx context.Context, rawURL string) (domain.Assessment, error) {
	ch := e.inflight.DoChan(rawURL, func() (any, error) {
		return e.classifier.Classify(context.WithoutCancel(ctx), rawURL)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Assessment{}, res.Err
		}
		return res.Val.(domain.Assessment), nil
	case <-ctx.Done():
		return domain.Assessment{}, errors.Join(domain.ErrScoringUnavailable, ctx.Err())
	}
}
