package transport

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/services/interceptor"
)

// MockCoordinator implements Coordinator for handler tests.
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) Navigate(ctx context.Context, req interceptor.NavigationRequest) (interceptor.Verdict, error) {
	args := m.Called(req)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) LinkClick(ctx context.Context, req interceptor.LinkRequest) (interceptor.Verdict, error) {
	args := m.Called(req)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) FormSubmit(ctx context.Context, req interceptor.FormRequest) (interceptor.Verdict, error) {
	args := m.Called(req)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) Rescan(ctx context.Context, tabID int) (interceptor.Verdict, error) {
	args := m.Called(tabID)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) Intercept(id string) (domain.Intercept, error) {
	args := m.Called(id)
	return args.Get(0).(domain.Intercept), args.Error(1)
}

func (m *MockCoordinator) Proceed(id string) (interceptor.Verdict, error) {
	args := m.Called(id)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) TrustAndRetry(ctx context.Context, id string) (interceptor.Verdict, error) {
	args := m.Called(id)
	return args.Get(0).(interceptor.Verdict), args.Error(1)
}

func (m *MockCoordinator) CurrentDecision(tabID int) (domain.Decision, error) {
	args := m.Called(tabID)
	return args.Get(0).(domain.Decision), args.Error(1)
}

func (m *MockCoordinator) CloseTab(tabID int) error {
	return m.Called(tabID).Error(0)
}

func (m *MockCoordinator) Settings() domain.Settings {
	return m.Called().Get(0).(domain.Settings)
}

func (m *MockCoordinator) UpdateSettings(patch domain.SettingsPatch) (domain.Settings, error) {
	args := m.Called(patch)
	return args.Get(0).(domain.Settings), args.Error(1)
}

func (m *MockCoordinator) Lists() domain.Lists {
	return m.Called().Get(0).(domain.Lists)
}

func (m *MockCoordinator) AddToList(kind domain.ListKind, input string) (string, error) {
	args := m.Called(kind, input)
	return args.String(0), args.Error(1)
}

func (m *MockCoordinator) RemoveFromList(kind domain.ListKind, input string) (bool, error) {
	args := m.Called(kind, input)
	return args.Bool(0), args.Error(1)
}

func (m *MockCoordinator) Statistics() domain.Statistics {
	return m.Called().Get(0).(domain.Statistics)
}

func (m *MockCoordinator) ResetStatistics() error {
	return m.Called().Error(0)
}

func (m *MockCoordinator) ClearCache() {
	m.Called()
}

type stubNotices map[int][]domain.Notice

func (s stubNotices) Drain(tabID int) []domain.Notice {
	n := s[tabID]
	delete(s, tabID)
	if n == nil {
		return []domain.Notice{}
	}
	return n
}
