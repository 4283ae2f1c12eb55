// Package sync implements the incremental synchronization engine: per
// connection and entity type it pulls deltas from the channel, feeds them
// to the inbound pipeline or inventory service, and advances checkpoints
// only after durable persistence.  Rate-limit telemetry acts as a hard
// backpressure gate, not a suggestion.
package sync

import (
	gosync "sync"
	"time"
)

// backoffGate is the per-(connection, entity) Idle -> Backoff(until) ->
// Idle state machine.  It is driven by typed channel failures: a rate
// limit trips it for the channel's reported reset window, a transient
// fault for a fixed retry delay.  Idle keys are absent from the map.
type backoffGate struct {
	mu    gosync.Mutex
	until map[string]time.Time
	now   func() time.Time // injectable for tests
}

func newBackoffGate() *backoffGate {
	return &backoffGate{until: make(map[string]time.Time), now: time.Now}
}

// Ready reports whether the key is Idle.  An elapsed backoff transitions
// back to Idle as a side effect.
func (b *backoffGate) Ready(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.until[key]
	if !ok {
		return true
	}
	if b.now().Before(until) {
		return false
	}
	delete(b.until, key)
	return true
}

// Trip moves the key into Backoff for d.  A later expiry already in place
// is kept; backoffs never shorten.
func (b *backoffGate) Trip(key string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until := b.now().Add(d)
	if cur, ok := b.until[key]; ok && cur.After(until) {
		return
	}
	b.until[key] = until
}

// Until returns the backoff expiry for a key, zero when Idle.
func (b *backoffGate) Until(key string) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.until[key]
}
