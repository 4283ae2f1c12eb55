package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGateLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newBackoffGate()
	g.now = func() time.Time { return now }

	assert.True(t, g.Ready("1:BOOKINGS"), "idle key is ready")

	g.Trip("1:BOOKINGS", 5*time.Minute)
	assert.False(t, g.Ready("1:BOOKINGS"))
	assert.True(t, g.Ready("1:CALENDAR"), "keys are independent")

	now = now.Add(4 * time.Minute)
	assert.False(t, g.Ready("1:BOOKINGS"))

	now = now.Add(2 * time.Minute)
	assert.True(t, g.Ready("1:BOOKINGS"), "elapsed backoff returns to idle")
	assert.True(t, g.Until("1:BOOKINGS").IsZero())
}

func TestBackoffGateNeverShortens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newBackoffGate()
	g.now = func() time.Time { return now }

	g.Trip("k", 10*time.Minute)
	long := g.Until("k")
	g.Trip("k", time.Minute)
	assert.Equal(t, long, g.Until("k"), "shorter trip does not shorten an active backoff")

	g.Trip("k", 20*time.Minute)
	assert.True(t, g.Until("k").After(long), "longer trip extends it")
}
