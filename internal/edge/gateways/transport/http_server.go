package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
)

// HTTPTransport owns the listening socket and HTTP server lifecycle. Protocol
// concerns stay here; routing logic lives in the handler it serves.
type HTTPTransport struct {
	addr     string
	maxConns int
	logger   log.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

// Options configures an HTTPTransport. MaxConns > 0 caps concurrent accepted
// connections via a limit listener.
type Options struct {
	Addr     string
	MaxConns int
	Logger   log.Logger
}

// NewHTTPTransport creates an HTTP transport bound to opts.Addr on Start.
func NewHTTPTransport(opts Options) *HTTPTransport {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &HTTPTransport{
		addr:     opts.Addr,
		maxConns: opts.MaxConns,
		logger:   opts.Logger,
	}
}

// Start binds the listener and begins serving handler. It returns once the
// listener is accepting; serving continues until Stop or context cancellation.
func (t *HTTPTransport) Start(ctx context.Context, handler http.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", t.addr, err)
	}
	if t.maxConns > 0 {
		listener = netutil.LimitListener(listener, t.maxConns)
	}

	t.listener = listener
	t.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   listener.Addr().String(),
		"max_conns": t.maxConns,
	}, "Edge transport started")

	go func() {
		if err := t.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error(map[string]any{
				"error": err.Error(),
			}, "Edge transport serve loop ended")
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the server down, bounded by ctx.
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false

	err := t.server.Shutdown(ctx)
	if err != nil {
		t.logger.Warn(map[string]any{
			"error": err.Error(),
		}, "Edge transport shutdown incomplete")
	} else {
		t.logger.Info(map[string]any{
			"address": t.addr,
		}, "Edge transport stopped")
	}
	return err
}

// Address returns the bound listener address, or the configured address
// before Start.
func (t *HTTPTransport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}
