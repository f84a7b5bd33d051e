// Package classifier is the HTTP client for the remote risk-scoring service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/common/metrics"
	"github.com/haukened/navguard/internal/guard/domain"
)

var (
	// ErrInvalidInput means the URL is not a well-formed absolute URI.
	ErrInvalidInput = domain.ErrUnscorableURL
	// ErrUnavailable covers every failure to obtain a usable verdict.
	ErrUnavailable = domain.ErrScoringUnavailable
)

const (
	analyzePath    = "/api/analyze/url"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Error message constants for consistent error handling
const (
	errBaseURLRequired = "classifier base URL is required"
	errBaseURLInvalid  = "invalid classifier base URL %q: %w"
	errRequestBuild    = "%w: build request: %w"
	errTransport       = "%w: %w"
	errStatus          = "%w: status %d"
	errDecode          = "%w: decode response: %w"
	errRejected        = "%w: service reported failure"
	errMissingData     = "%w: response missing data"
	errBadVerdict      = "%w: %w"
	errRateLimited     = "%w: rate limit: %w"
)

// Doer is the subset of *http.Client the classifier needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RPS <= 0 disables client-side rate limiting.
	RPS   float64
	Burst int
	// options to inject for testing purposes
	HTTP    Doer
	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Client calls POST {base}/api/analyze/url.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     Doer
	limiter  *rate.Limiter
	logger   log.Logger
	metrics  *metrics.Metrics
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		RiskLevel string   `json:"risk_level"`
		RiskScore *float64 `json:"risk_score"`
	} `json:"data"`
}

// New validates opts and returns a Client. Timeout defaults to 10s.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New(errBaseURLRequired)
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf(errBaseURLInvalid, base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf(errBaseURLInvalid, base, errors.New("scheme and host required"))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	c := &Client{
		endpoint: base + analyzePath,
		timeout:  opts.Timeout,
		http:     opts.HTTP,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c, nil
}

// Classify asks the service for a verdict on rawURL. The call is bounded by
// the client timeout or the caller's deadline, whichever is earlier.
func (c *Client) Classify(ctx context.Context, rawURL string) (domain.Assessment, error) {
	if err := validateTarget(rawURL); err != nil {
		return domain.Assessment{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	a, err := c.classify(ctx, rawURL)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Warn(map[string]any{"url": rawURL, "error": err}, "classifier call failed")
	}
	c.metrics.ClassifierCall(outcome, time.Since(start))
	return a, err
}

func (c *Client) classify(ctx context.Context, rawURL string) (domain.Assessment, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Assessment{}, fmt.Errorf(errRateLimited, ErrUnavailable, err)
		}
	}

	body, err := json.Marshal(analyzeRequest{URL: rawURL})
	if err != nil {
		return domain.Assessment{}, fmt.Errorf(errRequestBuild, ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf(errRequestBuild, ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf(errTransport, ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Assessment{}, fmt.Errorf(errStatus, ErrUnavailable, resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return domain.Assessment{}, fmt.Errorf(errDecode, ErrUnavailable, err)
	}
	if !out.Success {
		return domain.Assessment{}, fmt.Errorf(errRejected, ErrUnavailable)
	}
	if out.Data == nil || out.Data.RiskScore == nil {
		return domain.Assessment{}, fmt.Errorf(errMissingData, ErrUnavailable)
	}
	score := *out.Data.RiskScore
	if math.IsNaN(score) || score < 0 || score > domain.MaxRiskScore {
		return domain.Assessment{}, fmt.Errorf(errBadVerdict, ErrUnavailable, fmt.Errorf("risk score %v out of range", score))
	}
	a, err := domain.NewAssessment(out.Data.RiskLevel, int(math.Floor(score)))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf(errBadVerdict, ErrUnavailable, err)
	}
	c.logger.Debug(map[string]any{"url": rawURL, "level": string(a.Level), "score": a.Score}, "classifier verdict")
	return a, nil
}

// validateTarget requires an absolute URI with a scheme and host.
func validateTarget(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidInput, rawURL)
	}
	return nil
}
