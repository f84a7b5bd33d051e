package interceptor

import (
	"sync"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
)

// Presenter surfaces notices to the user. Present must not block.
type Presenter interface {
	Present(n domain.Notice)
}

// TabCloser is implemented by presenters that hold per-tab state.
type TabCloser interface {
	CloseTab(tabID int)
}

type discardPresenter struct{}

func (discardPresenter) Present(domain.Notice) {}

// MultiPresenter fans each notice out to every presenter in order.
type MultiPresenter []Presenter

func (m MultiPresenter) Present(n domain.Notice) {
	for _, p := range m {
		p.Present(n)
	}
}

func (m MultiPresenter) CloseTab(tabID int) {
	for _, p := range m {
		if tc, ok := p.(TabCloser); ok {
			tc.CloseTab(tabID)
		}
	}
}

// LogPresenter writes every notice to the log.
type LogPresenter struct {
	Logger log.Logger
}

func (p LogPresenter) Present(n domain.Notice) {
	p.Logger.Info(map[string]any{
		"tab":       n.TabID,
		"intercept": n.InterceptID,
		"kind":      string(n.Kind),
		"site":      n.Site,
		"action":    string(n.Decision.Action),
		"reason":    string(n.Decision.Reason),
	}, "notice")
}

// NoticeFeed queues notices per tab until the UI drains them. Each queue is
// bounded; when full the oldest notice is dropped.
type NoticeFeed struct {
	mu     sync.Mutex
	limit  int
	queues map[int][]domain.Notice
	logger log.Logger
}

// NewNoticeFeed returns a feed holding at most limit notices per tab.
func NewNoticeFeed(limit int, logger log.Logger) *NoticeFeed {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &NoticeFeed{limit: limit, queues: make(map[int][]domain.Notice), logger: logger}
}

func (f *NoticeFeed) Present(n domain.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := append(f.queues[n.TabID], n)
	if over := len(q) - f.limit; over > 0 {
		f.logger.Debug(map[string]any{"tab": n.TabID, "dropped": over}, "notice queue full, dropping oldest")
		q = append([]domain.Notice(nil), q[over:]...)
	}
	f.queues[n.TabID] = q
}

// Drain returns and clears the tab's pending notices, oldest first.
func (f *NoticeFeed) Drain(tabID int) []domain.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queues[tabID]
	delete(f.queues, tabID)
	if q == nil {
		return []domain.Notice{}
	}
	return q
}

// CloseTab discards the tab's queue.
func (f *NoticeFeed) CloseTab(tabID int) {
	f.mu.Lock()
	delete(f.queues, tabID)
	f.mu.Unlock()
}

var (
	_ Presenter = (*NoticeFeed)(nil)
	_ Presenter = LogPresenter{}
	_ Presenter = MultiPresenter{}
	_ TabCloser = (*NoticeFeed)(nil)
	_ TabCloser = MultiPresenter{}
)
