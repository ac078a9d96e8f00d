package utils

import (
	"net"
	"strings"
)

// CanonicalHost returns a client-visible hostname in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - Stripped of a trailing :port suffix
// - No trailing dot, so cache keys stay consistent regardless of FQDN notation.
func CanonicalHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return host
}
