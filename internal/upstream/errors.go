// Package upstream fetches JSON from third-party APIs with per-attempt
// timeouts, retries and a circuit breaker per upstream.
package upstream

import (
	"fmt"
)

// Kind classifies an upstream failure.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindRateLimit   Kind = "rate_limit"
	KindUpstream5xx Kind = "upstream_5xx"
	KindHTTPStatus  Kind = "http_status"
	KindDecode      Kind = "decode"
	KindCircuitOpen Kind = "circuit_open"
	KindConfig      Kind = "config"
)

// Error is returned by Client for every failed call.
type Error struct {
	Kind     Kind
	Upstream string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: %s (status %d): %v", e.Upstream, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s: %v", e.Upstream, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit, KindUpstream5xx:
		return true
	default:
		return false
	}
}
