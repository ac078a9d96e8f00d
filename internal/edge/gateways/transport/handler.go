package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/gateways/proxy"
	"github.com/cloakedge/cloakedge/internal/edge/statuspage"
)

// Auxiliary endpoint paths. Everything else is routed through the decision
// engine and proxied.
const (
	debugPath   = "/_edge/debug"
	healthPath  = "/_edge/health"
	metricsPath = "/metrics"
)

// Decider produces the routing decision for a request.
type Decider interface {
	Route(ctx context.Context, clientHost, userAgent string) (domain.RoutingDecision, error)
}

// Forwarder proxies a request to the decision's target.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, d domain.RoutingDecision)
}

// HandlerOptions configures the edge HTTP handler. Router and Proxy are
// required; ACME and Metrics handlers are optional endpoints.
type HandlerOptions struct {
	Router  Decider
	Proxy   Forwarder
	ACME    http.Handler
	Metrics http.Handler
	Logger  log.Logger
}

// NewHandler assembles the edge's full HTTP surface: challenge passthrough,
// diagnostics, and the proxied catch-all.
func NewHandler(opts HandlerOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}

	mux := http.NewServeMux()
	if opts.ACME != nil {
		mux.Handle(ACMEChallengePrefix, opts.ACME)
	}
	if opts.Metrics != nil {
		mux.Handle(metricsPath, opts.Metrics)
	}
	mux.HandleFunc(debugPath, debugHandler)
	mux.HandleFunc(healthPath, healthHandler)
	mux.Handle("/", &edgeHandler{
		router: opts.Router,
		proxy:  opts.Proxy,
		logger: opts.Logger,
	})
	return mux
}

// edgeHandler runs one request through the decision engine and hands it to
// the delegated proxy transport.
type edgeHandler struct {
	router Decider
	proxy  Forwarder
	logger log.Logger
}

func (h *edgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := ClientHost(r.Header, r.Host)

	decision, err := h.router.Route(r.Context(), host, r.UserAgent())
	if err != nil {
		h.writeRoutingError(w, r, host, err)
		return
	}

	h.proxy.Forward(w, r, decision)
}

// writeRoutingError maps resolution failures to client responses. The request
// is never routed to any origin on this path.
func (h *edgeHandler) writeRoutingError(w http.ResponseWriter, r *http.Request, host string, err error) {
	// abandoned by the client while resolving; nothing to write
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set(proxy.HeaderEdgeHost, host)
	w.Header().Set(proxy.HeaderEdgeTarget, "none")

	if errors.Is(err, domain.ErrNotConfigured) {
		statuspage.NotConfigured(w, host)
		return
	}

	var re *domain.ResolutionError
	if errors.As(err, &re) {
		statuspage.BadGateway(w)
		return
	}

	h.logger.Error(map[string]any{
		"host":  host,
		"error": err.Error(),
	}, "Unexpected routing failure")
	statuspage.Write(w, http.StatusInternalServerError, "The request could not be routed.")
}
