// Package channel implements the HTTP client boundary against one external
// distribution channel.  The client performs no business logic: it decodes
// payloads, extracts rate-limit telemetry from response headers and
// classifies failures into the typed errors below so that callers can
// drive retry, backoff and re-authentication decisions without inspecting
// error strings.
package channel

import (
	"fmt"
	"time"
)

// AuthError indicates the credential token was rejected (401/403).  It
// must trigger a token refresh upstream, never a blind retry.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("channel auth failed during %s: %v", e.Op, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitedError indicates the channel's credit budget is exhausted,
// either reported by a 429 or detected proactively by the caller when the
// remaining-credit telemetry drops below the safety threshold.  Callers
// must defer further calls until ResetsIn has elapsed.
type RateLimitedError struct {
	Op        string
	Remaining int
	ResetsIn  time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("channel rate limited during %s: %d credits remaining, resets in %s", e.Op, e.Remaining, e.ResetsIn)
}

// TransientError wraps a connection or timeout failure.  Retryable with
// backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("channel call %s failed transiently: %v", e.Op, e.Err)
}
func (e *TransientError) Unwrap() error { return e.Err }

// RemoteError carries a non-auth, non-rate-limit HTTP failure.  4xx is not
// retryable; 5xx may be retried with backoff.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("channel call %s returned %d: %s", e.Op, e.Status, e.Message)
}

// Retryable reports whether the failure is a server-side fault worth
// retrying.
func (e *RemoteError) Retryable() bool { return e.Status >= 500 }
