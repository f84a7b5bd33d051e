package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/metrics"
	"github.com/haukened/navguard/internal/guard/config"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/gateways/classifier"
	"github.com/haukened/navguard/internal/guard/gateways/transport"
	"github.com/haukened/navguard/internal/guard/repos/state"
	"github.com/haukened/navguard/internal/guard/repos/state/bloom"
	"github.com/haukened/navguard/internal/guard/repos/state/bolt"
	"github.com/haukened/navguard/internal/guard/repos/state/parsers"
	"github.com/haukened/navguard/internal/guard/repos/tabcache"
	"github.com/haukened/navguard/internal/guard/repos/threatcache"
	"github.com/haukened/navguard/internal/guard/services/interceptor"
	"github.com/haukened/navguard/internal/guard/services/policy"
	"github.com/haukened/navguard/internal/guard/services/stats"
)

// Application holds the wired components of the daemon.
type Application struct {
	config      *config.AppConfig
	logger      log.Logger
	repos       *repositories
	engine      *policy.Engine
	stats       *stats.Tracker
	coordinator *interceptor.Coordinator
	transport   transport.ServerTransport
}

// repositories holds the state layer. Everything here shares one store.
type repositories struct {
	store    state.Store
	settings *state.SettingsRepo
	lists    *state.ListRepo
	cache    *threatcache.Cache
	tabs     tabcache.Cache
}

// memoryDataPath selects a throwaway in-process store.
const memoryDataPath = ":memory:"

// openStore opens the bbolt file at path, or an in-memory store for
// memoryDataPath.
func openStore(path string) (state.Store, error) {
	if path == memoryDataPath {
		return state.NewMemoryStore(), nil
	}
	store, err := bolt.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store %s: %w", path, err)
	}
	return store, nil
}

// buildRepositories opens the store and loads settings and lists.
func buildRepositories(cfg *config.AppConfig, clk clock.Clock, m *metrics.Metrics, logger log.Logger) (*repositories, error) {
	store, err := openStore(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	settings := state.NewSettingsRepo(store, log.Component(logger, "settings"))
	lists := state.NewListRepo(state.ListRepoOptions{
		Store:  store,
		Bloom:  bloom.NewFactory(),
		Logger: log.Component(logger, "lists"),
	})

	cache, err := threatcache.New(threatcache.Options{
		Size:    cfg.CacheSize,
		TTL:     func() time.Duration { return settings.Get().CacheExpiry() },
		Clock:   clk,
		Metrics: m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create threat cache: %w", err)
	}

	tabs, err := tabcache.New(cfg.TabCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create tab cache: %w", err)
	}

	log.Info(map[string]any{
		"data_path":  cfg.DataPath,
		"cache_size": cfg.CacheSize,
		"tab_cache":  cfg.TabCacheSize,
	}, "state layer ready")

	return &repositories{store: store, settings: settings, lists: lists, cache: cache, tabs: tabs}, nil
}

// buildApplication constructs all components and wires them together. With
// serving false the bridge and metrics are left out; the result is used by
// one-shot commands.
func buildApplication(cfg *config.AppConfig, logger log.Logger, serving bool) (*Application, error) {
	clk := clock.RealClock{}

	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if serving && cfg.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
	}

	repos, err := buildRepositories(cfg, clk, m, logger)
	if err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		if err := seedLists(repos.lists, cfg.SeedFile, logger); err != nil {
			_ = repos.store.Close()
			return nil, err
		}
	}

	scorer, err := classifier.New(classifier.Options{
		BaseURL: cfg.ClassifierURL,
		Timeout: cfg.ClassifierTimeout,
		RPS:     cfg.ClassifierRPS,
		Burst:   cfg.ClassifierBurst,
		Logger:  log.Component(logger, "classifier"),
		Metrics: m,
	})
	if err != nil {
		_ = repos.store.Close()
		return nil, fmt.Errorf("failed to create classifier client: %w", err)
	}

	engine, err := policy.NewEngine(policy.Options{
		Settings:      repos.settings,
		Lists:         repos.lists,
		Cache:         repos.cache,
		Classifier:    scorer,
		InternalHosts: cfg.InternalHosts,
		Clock:         clk,
		Logger:        log.Component(logger, "policy"),
	})
	if err != nil {
		_ = repos.store.Close()
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}

	tracker := stats.New(stats.Options{
		Store:   repos.store,
		Clock:   clk,
		Logger:  log.Component(logger, "stats"),
		Metrics: m,
	})

	notices := interceptor.NewNoticeFeed(cfg.NoticeQueue, logger)
	coord, err := interceptor.New(interceptor.Options{
		Engine:    engine,
		Stats:     tracker,
		Settings:  repos.settings,
		Lists:     repos.lists,
		Cache:     repos.cache,
		Tabs:      repos.tabs,
		Presenter: interceptor.MultiPresenter{notices, interceptor.LogPresenter{Logger: log.Component(logger, "notice")}},
		Clock:     clk,
		Logger:    log.Component(logger, "coordinator"),
		Metrics:   m,
	})
	if err != nil {
		_ = repos.store.Close()
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	app := &Application{
		config:      cfg,
		logger:      logger,
		repos:       repos,
		engine:      engine,
		stats:       tracker,
		coordinator: coord,
	}
	if serving {
		opts := transport.HandlerOptions{
			Coordinator: coord,
			Notices:     notices,
			Logger:      log.Component(logger, "bridge"),
		}
		if registry != nil {
			opts.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		}
		app.transport = transport.NewHTTPTransport(cfg.Listen, transport.NewHandler(opts), logger)
	}
	return app, nil
}

// seedLists imports the YAML seed file into both lists. Invalid entries are
// logged and skipped; a failed write aborts startup.
func seedLists(lists *state.ListRepo, path string, logger log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	seed, err := parsers.ParseSeed(f, path, logger)
	if err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	for _, kind := range []domain.ListKind{domain.Whitelist, domain.Blacklist} {
		if _, err := importEntries(lists, kind, seed.Entries(kind), logger); err != nil {
			return err
		}
	}
	return nil
}

// importEntries adds entries to one list. Per-entry rejections are logged;
// only a persistence failure is returned.
func importEntries(lists *state.ListRepo, kind domain.ListKind, entries []string, logger log.Logger) (int, error) {
	added, err := lists.Import(kind, entries)
	if errors.Is(err, state.ErrPersistence) {
		return 0, fmt.Errorf("failed to import %s: %w", kind, err)
	}
	for _, e := range multierr.Errors(err) {
		logger.Warn(map[string]any{"list": kind.String(), "error": e.Error()}, "list entry rejected")
	}
	return added, nil
}

// Run starts the bridge and blocks until ctx is cancelled, then shuts
// down the bridge and closes the store.
func (app *Application) Run(ctx context.Context) error {
	if _, err := app.stats.ResetIfNewDay(); err != nil {
		app.logger.Warn(map[string]any{"error": err}, "could not persist daily statistics reset")
	}

	if err := app.transport.Start(ctx); err != nil {
		_ = app.repos.store.Close()
		return fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	app.logger.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "http",
	}, "navguard started")

	// Wait for shutdown signal
	<-ctx.Done()

	app.logger.Info(nil, "Shutdown initiated")
	return app.shutdown()
}

// shutdown stops the bridge, bounded by the shutdown timeout, then closes
// the store.
func (app *Application) shutdown() error {
	done := make(chan error, 1)
	go func() {
		var err error
		if app.transport != nil {
			err = app.transport.Stop()
		}
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(defaultShutdownTimeout):
		err = fmt.Errorf("shutdown timeout after %s", defaultShutdownTimeout)
	}
	return multierr.Combine(err, app.repos.store.Close())
}

// Close releases the store without touching the bridge.
func (app *Application) Close() error {
	return app.repos.store.Close()
}
