package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/navguard/internal/guard/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{BaseURL: "localhost"})
	assert.Error(t, err)

	c, err := New(Options{BaseURL: "http://scorer.internal:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://scorer.internal:8000/api/analyze/url", c.endpoint)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Nil(t, c.limiter)
}

func TestClassify_Success(t *testing.T) {
	var gotBody analyzeRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, analyzePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(`{"success":true,"data":{"risk_level":"Dangerous","risk_score":85,"factors":["x"]}}`)(w, r)
	})

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	a, err := c.Classify(context.Background(), "https://phish.example/login")
	require.NoError(t, err)
	assert.Equal(t, domain.Assessment{Level: domain.RiskDangerous, Score: 85}, a)
	assert.Equal(t, "https://phish.example/login", gotBody.URL)
}

func TestClassify_FractionalScoreFloors(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"54.6", 54},
		{"69.5", 69},
		{"69.999", 69},
		{"70", 70},
		{"99.9", 99},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			srv := newServer(t, respond(`{"success":true,"data":{"risk_level":"suspicious","risk_score":`+tt.raw+`}}`))
			c, err := New(Options{BaseURL: srv.URL})
			require.NoError(t, err)
			a, err := c.Classify(context.Background(), "https://a.example/")
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Score)
		})
	}
}

func TestClassify_InvalidInput(t *testing.T) {
	var calls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&calls, 1) })
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	for _, in := range []string{"", "   ", "not a url", "/relative/path", "http://[::1"} {
		_, err := c.Classify(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
	assert.Zero(t, atomic.LoadInt32(&calls), "invalid input must not reach the network")
}

func TestClassify_FailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad request", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) }},
		{"not json", respond(`<html>oops</html>`)},
		{"success false", respond(`{"success":false,"error":"model offline"}`)},
		{"missing data", respond(`{"success":true}`)},
		{"missing score", respond(`{"success":true,"data":{"risk_level":"safe"}}`)},
		{"unknown level", respond(`{"success":true,"data":{"risk_level":"catastrophic","risk_score":50}}`)},
		{"score above range", respond(`{"success":true,"data":{"risk_level":"dangerous","risk_score":101}}`)},
		{"negative score", respond(`{"success":true,"data":{"risk_level":"safe","risk_score":-1}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.h)
			c, err := New(Options{BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = c.Classify(context.Background(), "https://a.example/")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	start := time.Now()
	_, err = c.Classify(context.Background(), "https://slow.example/")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassify_CallerDeadlineWins(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Classify(ctx, "https://slow.example/")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClassify_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "https://a.example/")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassify_BodyCapped(t *testing.T) {
	huge := `{"success":true,"data":{"risk_level":"safe","risk_score":1,"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	srv := newServer(t, respond(huge))
	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "https://a.example/")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassify_RateLimitHonoursDeadline(t *testing.T) {
	srv := newServer(t, respond(`{"success":true,"data":{"risk_level":"safe","risk_score":1}}`))
	c, err := New(Options{BaseURL: srv.URL, RPS: 0.001, Burst: 1})
	require.NoError(t, err)
	require.NotNil(t, c.limiter)

	_, err = c.Classify(context.Background(), "https://a.example/")
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Classify(ctx, "https://a.example/")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestClassify_InjectedDoer(t *testing.T) {
	c, err := New(Options{BaseURL: "http://scorer.invalid", HTTP: doerFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"success":true,"data":{"risk_level":"safe","risk_score":12}}`)),
		}, nil
	})})
	require.NoError(t, err)
	a, err := c.Classify(context.Background(), "https://a.example/")
	require.NoError(t, err)
	assert.Equal(t, domain.Assessment{Level: domain.RiskSafe, Score: 12}, a)
}
