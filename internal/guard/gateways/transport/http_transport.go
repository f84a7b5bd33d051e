package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haukened/navguard/internal/guard/common/log"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// HTTPTransport serves the bridge handler on a TCP listener.
type HTTPTransport struct {
	addr    string
	handler http.Handler
	logger  log.Logger

	mu       sync.RWMutex
	running  bool
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	stopped  chan struct{}
}

// NewHTTPTransport creates a transport for addr. Nothing is bound until
// Start.
func NewHTTPTransport(addr string, handler http.Handler, logger log.Logger) *HTTPTransport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &HTTPTransport{addr: addr, handler: handler, logger: logger}
}

// Start binds the listener and serves until Stop or ctx is cancelled.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", t.addr, err)
	}

	t.listener = ln
	t.server = &http.Server{
		Handler:           t.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	done := make(chan struct{})
	t.done = done
	t.stopped = make(chan struct{})
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "bridge transport started")

	go t.serve(t.server, ln, done)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-done:
		}
	}()
	return nil
}

func (t *HTTPTransport) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.logger.Error(map[string]any{"error": err.Error()}, "bridge transport failed")
	}
}

// Stop shuts the server down, waiting up to the shutdown timeout for
// in-flight requests. Concurrent callers all wait for the same shutdown.
func (t *HTTPTransport) Stop() error {
	t.mu.Lock()
	srv, done, stopped := t.server, t.done, t.stopped
	if !t.running {
		t.mu.Unlock()
		if stopped != nil {
			<-stopped
		}
		return nil
	}
	t.running = false
	t.mu.Unlock()
	defer close(stopped)

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   t.Address(),
	}, "bridge transport stopped")
	return err
}

// Address returns the bound address once started, else the configured one.
func (t *HTTPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

var _ ServerTransport = (*HTTPTransport)(nil)
