package interceptor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/repos/state"
	"github.com/haukened/navguard/internal/guard/repos/tabcache"
	"github.com/haukened/navguard/internal/guard/repos/threatcache"
	"github.com/haukened/navguard/internal/guard/services/policy"
	"github.com/haukened/navguard/internal/guard/services/stats"
)

// stubClassifier scores URLs from a table. Gated URLs block until their
// gate is closed.
type stubClassifier struct {
	mu      sync.Mutex
	scores  map[string]int
	fail    map[string]bool
	gates   map[string]chan struct{}
	calls   map[string]int
	started chan string
}

func newStubClassifier() *stubClassifier {
	return &stubClassifier{
		scores:  map[string]int{},
		fail:    map[string]bool{},
		gates:   map[string]chan struct{}{},
		calls:   map[string]int{},
		started: make(chan string, 16),
	}
}

func (s *stubClassifier) Classify(_ context.Context, url string) (domain.Assessment, error) {
	s.mu.Lock()
	s.calls[url]++
	gate := s.gates[url]
	score, scored := s.scores[url]
	failing := s.fail[url]
	s.mu.Unlock()

	select {
	case s.started <- url:
	default:
	}
	if gate != nil {
		<-gate
	}
	if failing || !scored {
		return domain.Assessment{}, fmt.Errorf("%w: stub", domain.ErrScoringUnavailable)
	}
	level := domain.RiskSafe
	switch {
	case score >= 70:
		level = domain.RiskDangerous
	case score >= 40:
		level = domain.RiskSuspicious
	}
	return domain.Assessment{Level: level, Score: score}, nil
}

func (s *stubClassifier) set(url string, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[url] = score
	delete(s.fail, url)
}

func (s *stubClassifier) setFailing(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[url] = true
}

func (s *stubClassifier) gate(url string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	s.gates[url] = g
	return g
}

func (s *stubClassifier) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// flakyStore fails every write while broken is set.
type flakyStore struct {
	*state.MemoryStore
	mu     sync.Mutex
	broken bool
}

func (f *flakyStore) setBroken(b bool) {
	f.mu.Lock()
	f.broken = b
	f.mu.Unlock()
}

func (f *flakyStore) Set(key string, value []byte) error {
	return f.SetMany(map[string][]byte{key: value})
}

func (f *flakyStore) SetMany(values map[string][]byte) error {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return errors.New("disk full")
	}
	return f.MemoryStore.SetMany(values)
}

type harness struct {
	coord      *Coordinator
	classifier *stubClassifier
	store      *flakyStore
	lists      *state.ListRepo
	settings   *state.SettingsRepo
	tracker    *stats.Tracker
	cache      *threatcache.Cache
	feed       *NoticeFeed
	clock      *clock.MockClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		classifier: newStubClassifier(),
		store:      &flakyStore{MemoryStore: state.NewMemoryStore()},
		clock:      &clock.MockClock{CurrentTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)},
		feed:       NewNoticeFeed(8, nil),
	}
	logger := log.NewNoopLogger()
	h.settings = state.NewSettingsRepo(h.store, logger)
	h.lists = state.NewListRepo(state.ListRepoOptions{Store: h.store, Logger: logger})
	h.tracker = stats.New(stats.Options{Store: h.store, Clock: h.clock, Logger: logger})

	var err error
	h.cache, err = threatcache.New(threatcache.Options{
		Size:  128,
		Clock: h.clock,
		TTL:   func() time.Duration { return h.settings.Get().CacheExpiry() },
	})
	require.NoError(t, err)

	engine, err := policy.NewEngine(policy.Options{
		Settings:      h.settings,
		Lists:         h.lists,
		Cache:         h.cache,
		Classifier:    h.classifier,
		InternalHosts: []string{"localhost:3000"},
		Clock:         h.clock,
		Logger:        logger,
	})
	require.NoError(t, err)

	tabs, err := tabcache.New(16)
	require.NoError(t, err)

	h.coord, err = New(Options{
		Engine:    engine,
		Stats:     h.tracker,
		Settings:  h.settings,
		Lists:     h.lists,
		Cache:     h.cache,
		Tabs:      tabs,
		Presenter: MultiPresenter{h.feed, LogPresenter{Logger: logger}},
		Clock:     h.clock,
		Logger:    logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		h.classifier.mu.Lock()
		for url, g := range h.classifier.gates {
			select {
			case <-g:
			default:
				close(g)
			}
			delete(h.classifier.gates, url)
		}
		h.classifier.mu.Unlock()
	})
	return h
}

func (h *harness) navigate(t *testing.T, tabID int, url string) Verdict {
	t.Helper()
	v, err := h.coord.Navigate(context.Background(), NavigationRequest{TabID: tabID, URL: url, MainFrame: true})
	require.NoError(t, err)
	return v
}
