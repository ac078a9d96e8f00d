package domain

import (
	"fmt"
	"regexp"

	"github.com/cloakedge/cloakedge/internal/edge/common/utils"
)

// DomainPolicy is the authoritative routing policy for one hostname.
// A policy is immutable once constructed; updates only arrive through
// re-resolution after cache expiry or explicit eviction.
type DomainPolicy struct {
	// Host is the canonical hostname the policy applies to (lower-case, no port).
	Host string

	// WhiteOrigin is the absolute origin URL served to ordinary visitors.
	// May be empty.
	WhiteOrigin string

	// BlackOrigin is the absolute origin URL served to detected bots.
	// May be empty.
	BlackOrigin string

	// BlockPattern overrides the default bot-detection pattern when non-nil.
	// Compiled once at policy construction, never per request.
	BlockPattern *regexp.Regexp

	// Status is an opaque policy-lifecycle tag, informational only.
	Status string
}

// NewDomainPolicy constructs a DomainPolicy with a canonicalized host and a
// pre-compiled case-insensitive block pattern. An empty host is invalid. An
// invalid blockPattern is dropped so the domain keeps routing on the default
// pattern; callers that care can detect the drop via PatternDropped.
func NewDomainPolicy(host, whiteOrigin, blackOrigin, blockPattern, status string) (DomainPolicy, error) {
	canonical := utils.CanonicalHost(host)
	if canonical == "" {
		return DomainPolicy{}, fmt.Errorf("domain policy requires a hostname")
	}

	p := DomainPolicy{
		Host:        canonical,
		WhiteOrigin: whiteOrigin,
		BlackOrigin: blackOrigin,
		Status:      status,
	}

	if blockPattern != "" {
		if re, err := regexp.Compile("(?i)" + blockPattern); err == nil {
			p.BlockPattern = re
		}
	}

	return p, nil
}

// PatternDropped reports whether a non-empty block pattern failed to compile
// and was discarded during construction.
func PatternDropped(blockPattern string, p DomainPolicy) bool {
	return blockPattern != "" && p.BlockPattern == nil
}

// CacheKey returns the key under which this policy is cached.
func (p DomainPolicy) CacheKey() string {
	return p.Host
}
