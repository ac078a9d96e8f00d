package domain

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates the policy API knows nothing about a hostname.
// The result is terminal for the request (404 to the client) and is never
// cached, since the domain may be provisioned moments later.
var ErrNotConfigured = errors.New("domain not configured")

// ErrUnknownChallenge indicates an ACME challenge token has no known value.
var ErrUnknownChallenge = errors.New("unknown acme challenge token")

// ResolutionError indicates the policy API was unreachable or answered with
// an unexpected status. Requests failing this way answer 502 and are never
// routed to any origin.
type ResolutionError struct {
	Host   string
	Status int
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("policy resolution for %s failed: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("policy resolution for %s failed: upstream status %d", e.Host, e.Status)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
