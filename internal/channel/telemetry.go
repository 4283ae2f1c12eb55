package channel

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo is the credit telemetry extracted from a channel response.
// A zero value means the channel reported nothing; Known distinguishes
// that from a genuine zero balance.
type RateLimitInfo struct {
	Known     bool          // whether the response carried telemetry at all
	Remaining int           // credits left in the current window
	ResetsIn  time.Duration // time until the window resets
	Cost      int           // credits this call consumed
}

// HeaderNames configures which response headers carry the telemetry.
// Header names are channel-specific (Beds24 uses X-FiveMinCreditLimit-*,
// others use X-RateLimit-*), so they are injected per connection rather
// than hardcoded.
type HeaderNames struct {
	Remaining string
	ResetsIn  string // seconds until reset
	Cost      string // credits consumed by this call
}

// DefaultHeaderNames matches the most common X-RateLimit-* convention.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Remaining: "X-RateLimit-Remaining",
		ResetsIn:  "X-RateLimit-Reset",
		Cost:      "X-RateLimit-Cost",
	}
}

// extractTelemetry reads the configured headers from a response.  Missing
// or malformed headers leave Known false so callers do not act on garbage.
func extractTelemetry(h http.Header, names HeaderNames) RateLimitInfo {
	info := RateLimitInfo{Cost: 1} // a call costs at least one credit
	rem := h.Get(names.Remaining)
	if rem == "" {
		return info
	}
	n, err := strconv.Atoi(rem)
	if err != nil {
		return info
	}
	info.Known = true
	info.Remaining = n
	if secs, err := strconv.Atoi(h.Get(names.ResetsIn)); err == nil && secs >= 0 {
		info.ResetsIn = time.Duration(secs) * time.Second
	}
	if cost, err := strconv.Atoi(h.Get(names.Cost)); err == nil && cost > 0 {
		info.Cost = cost
	}
	return info
}
