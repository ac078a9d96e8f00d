package domain

import "net/url"

// RouteLabel names the outcome of a routing decision. The vocabulary is part
// of the external contract: labels are surfaced verbatim in the x-edge-route
// response header and in origin-facing diagnostics.
type RouteLabel string

const (
	// RouteWhite routes to the policy's white origin (human traffic).
	RouteWhite RouteLabel = "white"
	// RouteBlack routes to the policy's black origin (automated traffic).
	RouteBlack RouteLabel = "black"
	// RouteFallback routes to the default origin because no policy was
	// resolvable for the request.
	RouteFallback RouteLabel = "fallback"
	// RouteLoopFallback routes to the default origin because the selected
	// origin would have proxied the request back to this edge.
	RouteLoopFallback RouteLabel = "loop-fallback"
	// RouteNoTargetFallback routes to the default origin because the selected
	// origin was unset or unusable.
	RouteNoTargetFallback RouteLabel = "no-target-fallback"
)

// RoutingDecision is the per-request routing outcome. It is constructed once,
// never mutated, and discarded when the response completes.
type RoutingDecision struct {
	Route      RouteLabel
	Target     *url.URL
	ClientHost string
}

// TargetString renders the decision target for diagnostics, or "none" when no
// target was selected.
func (d RoutingDecision) TargetString() string {
	if d.Target == nil {
		return "none"
	}
	return d.Target.String()
}
