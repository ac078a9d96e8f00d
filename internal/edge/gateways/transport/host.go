package transport

import (
	"net/http"
	"strings"

	"github.com/cloakedge/cloakedge/internal/edge/common/utils"
)

// Forwarding headers consulted when deriving the client-visible hostname,
// in trust order.
const (
	headerOriginalHost  = "X-Original-Host"
	headerForwardedHost = "X-Forwarded-Host"
)

// ClientHost derives the canonical client-visible hostname from request
// headers. Precedence: the original-host override set by an upstream edge
// transform, then the first value of the forwarded-host chain, then the
// literal request host. Returns "" when no usable value is present; callers
// treat that as an unknown host and route to fallback.
func ClientHost(header http.Header, requestHost string) string {
	if v := utils.CanonicalHost(header.Get(headerOriginalHost)); v != "" {
		return v
	}
	if raw := header.Get(headerForwardedHost); raw != "" {
		first, _, _ := strings.Cut(raw, ",")
		if v := utils.CanonicalHost(first); v != "" {
			return v
		}
	}
	return utils.CanonicalHost(requestHost)
}
