// Package metrics exposes Prometheus instrumentation for the decision engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/services/router"
)

// EdgeMetrics implements router.Metrics on a dedicated Prometheus registry.
type EdgeMetrics struct {
	registry *prometheus.Registry

	routes        *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	resolveErrors prometheus.Counter
	notConfigured prometheus.Counter
}

// New constructs the metric set. Each instance carries its own registry so
// tests stay independent of global state.
func New() *EdgeMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &EdgeMetrics{
		registry: registry,
		routes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_route_decisions_total",
			Help: "Routing decisions by route label.",
		}, []string{"route"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "edge_policy_cache_hits_total",
			Help: "Policy cache lookups answered without an upstream call.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "edge_policy_cache_misses_total",
			Help: "Policy cache lookups requiring upstream resolution.",
		}),
		resolveErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "edge_policy_resolve_errors_total",
			Help: "Failed policy resolutions (network or upstream status).",
		}),
		notConfigured: factory.NewCounter(prometheus.CounterOpts{
			Name: "edge_policy_not_configured_total",
			Help: "Resolutions answered 404 by the policy API.",
		}),
	}
}

func (m *EdgeMetrics) RouteDecision(route domain.RouteLabel) {
	m.routes.WithLabelValues(string(route)).Inc()
}

func (m *EdgeMetrics) CacheHit()      { m.cacheHits.Inc() }
func (m *EdgeMetrics) CacheMiss()     { m.cacheMisses.Inc() }
func (m *EdgeMetrics) ResolveError()  { m.resolveErrors.Inc() }
func (m *EdgeMetrics) NotConfigured() { m.notConfigured.Inc() }

// Handler serves the registry in Prometheus exposition format.
func (m *EdgeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ router.Metrics = (*EdgeMetrics)(nil)
