// Package transport exposes the interception coordinator over a local
// JSON/HTTP bridge. It converts requests to coordinator calls and maps
// coordinator errors onto status codes; no policy lives here.
package transport

import (
	"context"

	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/services/interceptor"
)

// ServerTransport is a bridge that can be started and stopped.
type ServerTransport interface {
	// Start binds the listener and serves in the background.
	Start(ctx context.Context) error

	// Stop drains in-flight requests and closes the listener.
	Stop() error

	// Address returns the bound address, which differs from the configured
	// one when port 0 was requested.
	Address() string
}

// Coordinator is the service surface the bridge drives.
type Coordinator interface {
	Navigate(ctx context.Context, req interceptor.NavigationRequest) (interceptor.Verdict, error)
	LinkClick(ctx context.Context, req interceptor.LinkRequest) (interceptor.Verdict, error)
	FormSubmit(ctx context.Context, req interceptor.FormRequest) (interceptor.Verdict, error)
	Rescan(ctx context.Context, tabID int) (interceptor.Verdict, error)

	Intercept(id string) (domain.Intercept, error)
	Proceed(id string) (interceptor.Verdict, error)
	TrustAndRetry(ctx context.Context, id string) (interceptor.Verdict, error)

	CurrentDecision(tabID int) (domain.Decision, error)
	CloseTab(tabID int) error

	Settings() domain.Settings
	UpdateSettings(patch domain.SettingsPatch) (domain.Settings, error)

	Lists() domain.Lists
	AddToList(kind domain.ListKind, input string) (string, error)
	RemoveFromList(kind domain.ListKind, input string) (bool, error)

	Statistics() domain.Statistics
	ResetStatistics() error
	ClearCache()
}

// NoticeSource hands out the pending notices for a tab.
type NoticeSource interface {
	Drain(tabID int) []domain.Notice
}

var _ Coordinator = (*interceptor.Coordinator)(nil)
var _ NoticeSource = (*interceptor.NoticeFeed)(nil)
