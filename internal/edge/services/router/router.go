// Package router implements the routing decision engine: it combines the
// cached per-domain policy with client classification into a concrete
// destination, applying loop-prevention and fallback rules.
package router

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cloakedge/cloakedge/internal/edge/common/log"
	"github.com/cloakedge/cloakedge/internal/edge/common/utils"
	"github.com/cloakedge/cloakedge/internal/edge/domain"
)

// Router decides, per request, which origin should serve the response.
type Router struct {
	cache    PolicyCache
	provider PolicyProvider
	fallback *url.URL
	logger   log.Logger
	metrics  Metrics
	group    singleflight.Group
}

// Options configures a Router. Cache, Provider and Fallback are required;
// Logger and Metrics default to no-ops when unset.
type Options struct {
	Cache    PolicyCache
	Provider PolicyProvider
	Fallback *url.URL
	Logger   log.Logger
	Metrics  Metrics
}

// ErrMissingDependency is returned by New when a required collaborator is absent.
var ErrMissingDependency = errors.New("router requires a cache, a provider and a fallback origin")

// New constructs a Router from its collaborators.
func New(opts Options) (*Router, error) {
	if opts.Cache == nil || opts.Provider == nil || opts.Fallback == nil {
		return nil, ErrMissingDependency
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &Router{
		cache:    opts.Cache,
		provider: opts.Provider,
		fallback: opts.Fallback,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Route resolves the policy for clientHost, classifies the agent and returns
// the routing decision. It returns domain.ErrNotConfigured when the hostname
// is unknown to the policy API and *domain.ResolutionError when resolution
// failed; in both cases the request must not be routed to any origin.
func (r *Router) Route(ctx context.Context, clientHost, userAgent string) (domain.RoutingDecision, error) {
	host := utils.CanonicalHost(clientHost)
	if host == "" {
		// Unknown host: policy resolution is skipped, not failed.
		d := domain.RoutingDecision{Route: domain.RouteFallback, Target: r.fallback, ClientHost: host}
		r.finish(d)
		return d, nil
	}

	policy, err := r.resolvePolicy(ctx, host)
	if err != nil {
		return domain.RoutingDecision{}, err
	}

	d := r.decide(host, userAgent, policy)
	r.finish(d)
	return d, nil
}

// decide applies the routing decision table for a resolved policy.
func (r *Router) decide(host, userAgent string, policy domain.DomainPolicy) domain.RoutingDecision {
	class := domain.Classify(userAgent, policy.BlockPattern)

	candidate := policy.WhiteOrigin
	route := domain.RouteWhite
	if class == domain.TrafficBlack {
		candidate = policy.BlackOrigin
		route = domain.RouteBlack
	}

	if candidate == "" {
		return domain.RoutingDecision{Route: domain.RouteNoTargetFallback, Target: r.fallback, ClientHost: host}
	}

	target, err := url.Parse(candidate)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		// Malformed or non-http(s) targets are never forwarded.
		r.logger.Warn(map[string]any{
			"host":   host,
			"target": candidate,
		}, "Policy target unusable, routing to fallback")
		return domain.RoutingDecision{Route: domain.RouteNoTargetFallback, Target: r.fallback, ClientHost: host}
	}

	if strings.EqualFold(target.Host, host) {
		// Proxying to ourselves would loop forever.
		return domain.RoutingDecision{Route: domain.RouteLoopFallback, Target: r.fallback, ClientHost: host}
	}

	return domain.RoutingDecision{Route: route, Target: target, ClientHost: host}
}

// resolvePolicy consults the cache first and falls back to the provider.
// Concurrent misses for the same hostname share a single upstream call.
func (r *Router) resolvePolicy(ctx context.Context, host string) (domain.DomainPolicy, error) {
	if policy, ok := r.cache.Get(host); ok {
		r.metrics.CacheHit()
		return policy, nil
	}
	r.metrics.CacheMiss()

	v, err, _ := r.group.Do(host, func() (any, error) {
		policy, err := r.provider.Resolve(ctx, host)
		if err != nil {
			return nil, err
		}
		r.cache.Set(policy)
		return policy, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			r.metrics.NotConfigured()
			r.logger.Debug(map[string]any{"host": host}, "Hostname not configured")
		} else {
			r.metrics.ResolveError()
			r.logger.Error(map[string]any{
				"host":  host,
				"error": err.Error(),
			}, "Policy resolution failed")
		}
		return domain.DomainPolicy{}, err
	}
	return v.(domain.DomainPolicy), nil
}

// finish records the decision for observability.
func (r *Router) finish(d domain.RoutingDecision) {
	r.metrics.RouteDecision(d.Route)
	r.logger.Debug(map[string]any{
		"host":   d.ClientHost,
		"route":  string(d.Route),
		"target": d.TargetString(),
	}, "Routing decision")
}
