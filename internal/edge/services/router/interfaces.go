package router

import (
	"context"

	"github.com/cloakedge/cloakedge/internal/edge/domain"
)

// PolicyProvider fetches the authoritative routing policy for a hostname.
// Implementations return domain.ErrNotConfigured when the hostname is unknown
// and *domain.ResolutionError for transport or upstream failures.
type PolicyProvider interface {
	Resolve(ctx context.Context, host string) (domain.DomainPolicy, error)
}

// PolicyCache is the bounded, time-expiring policy store consulted before the
// provider. Implementations must be safe for concurrent use.
type PolicyCache interface {
	Get(host string) (domain.DomainPolicy, bool)
	Set(policy domain.DomainPolicy)
	Delete(host string)
	Len() int
}

// Metrics receives routing and resolution events. Implementations must be
// safe for concurrent use.
type Metrics interface {
	RouteDecision(route domain.RouteLabel)
	CacheHit()
	CacheMiss()
	ResolveError()
	NotConfigured()
}

// noopMetrics discards all events; used when no metrics sink is injected.
type noopMetrics struct{}

func (noopMetrics) RouteDecision(domain.RouteLabel) {}
func (noopMetrics) CacheHit()                       {}
func (noopMetrics) CacheMiss()                      {}
func (noopMetrics) ResolveError()                   {}
func (noopMetrics) NotConfigured()                  {}
