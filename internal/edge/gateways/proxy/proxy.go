// Package proxy wraps the delegated reverse-proxy transport and applies the
// header-rewriting contract around it: the origin sees the intended virtual
// host plus the original client's forwarding headers, and every response
// carries the routing diagnostics.
package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/statuspage"
)

// Diagnostic response headers. The route label vocabulary is part of the
// external contract.
const (
	HeaderEdgeHost   = "x-edge-host"
	HeaderEdgeRoute  = "x-edge-route"
	HeaderEdgeTarget = "x-edge-target"
)

// decisionKey carries the request's RoutingDecision through the delegated
// transport without mutable request state.
type decisionKey struct{}

// Proxy forwards requests to the origin chosen by a routing decision.
type Proxy struct {
	reverseProxy *httputil.ReverseProxy
	logger       log.Logger
}

// Options configures a Proxy. Timeout bounds the origin dial and response
// header wait (defaults to 30 seconds); Transport is injectable for tests.
type Options struct {
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    log.Logger
}

// New constructs a Proxy around httputil.ReverseProxy.
func New(opts Options) *Proxy {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Transport == nil {
		opts.Transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   opts.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: opts.Timeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
		}
	}

	p := &Proxy{logger: opts.Logger}
	p.reverseProxy = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.errorHandler,
		Transport:      opts.Transport,
	}
	return p
}

// Forward proxies the request to the decision's target, rewriting headers on
// both legs.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, d domain.RoutingDecision) {
	ctx := context.WithValue(r.Context(), decisionKey{}, d)
	p.reverseProxy.ServeHTTP(w, r.WithContext(ctx))
}

// rewrite prepares the outbound (edge to origin) leg. The Host header is the
// target's host so origins see the intended virtual host, while the forwarding
// headers carry the original client's host and scheme, never this hop's.
func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	d := decisionFrom(pr.In.Context())

	pr.Out.URL.Scheme = d.Target.Scheme
	pr.Out.URL.Host = d.Target.Host
	pr.Out.Host = d.Target.Host

	pr.SetXForwarded()
	pr.Out.Header.Set("X-Forwarded-Host", d.ClientHost)
	pr.Out.Header.Set("X-Forwarded-Proto", clientScheme(pr.In))
}

// modifyResponse attaches the routing diagnostics on the inbound (origin to
// client) leg, fallback routes included.
func (p *Proxy) modifyResponse(resp *http.Response) error {
	d := decisionFrom(resp.Request.Context())
	resp.Header.Set(HeaderEdgeHost, d.ClientHost)
	resp.Header.Set(HeaderEdgeRoute, string(d.Route))
	resp.Header.Set(HeaderEdgeTarget, d.TargetString())
	return nil
}

// errorHandler answers 502 when the origin is unreachable. Client disconnects
// surface here as context cancellation; nothing is written in that case.
func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}

	d := decisionFrom(r.Context())
	p.logger.Error(map[string]any{
		"host":   d.ClientHost,
		"route":  string(d.Route),
		"target": d.TargetString(),
		"error":  err.Error(),
	}, "Origin unreachable")

	w.Header().Set(HeaderEdgeHost, d.ClientHost)
	w.Header().Set(HeaderEdgeRoute, string(d.Route))
	w.Header().Set(HeaderEdgeTarget, d.TargetString())
	statuspage.BadGateway(w)
}

// decisionFrom extracts the routing decision threaded through the request
// context by Forward.
func decisionFrom(ctx context.Context) domain.RoutingDecision {
	d, _ := ctx.Value(decisionKey{}).(domain.RoutingDecision)
	return d
}

// clientScheme derives the original client's scheme. A forwarded protocol set
// by an upstream edge wins over this hop's connection state.
func clientScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
