package sync

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otelciro/channel-sync/internal/channel"
)

const telemetryTTL = 10 * time.Minute

// telemetryCache remembers the last rate-limit telemetry seen per
// connection so the engine can gate the next cycle before issuing any
// call.  Shared through Redis when available (the push consumer and the
// sync engine spend from the same credit budget); process-local
// otherwise.
type telemetryCache struct {
	rdb   *redis.Client
	mu    gosync.RWMutex
	local map[uint64]channel.RateLimitInfo
}

func newTelemetryCache(rdb *redis.Client) *telemetryCache {
	return &telemetryCache{rdb: rdb, local: make(map[uint64]channel.RateLimitInfo)}
}

func telemetryKey(connectionID uint64) string {
	return fmt.Sprintf("chansync:telemetry:%d", connectionID)
}

// Get returns the last known telemetry for a connection, ok=false when
// nothing has been observed (or the cache entry expired).
func (t *telemetryCache) Get(ctx context.Context, connectionID uint64) (channel.RateLimitInfo, bool) {
	if t.rdb != nil {
		raw, err := t.rdb.Get(ctx, telemetryKey(connectionID)).Bytes()
		if err == nil {
			var info channel.RateLimitInfo
			if json.Unmarshal(raw, &info) == nil && info.Known {
				return info, true
			}
		}
		if err != redis.Nil && err != nil {
			// Redis trouble: fall through to the local copy.
			t.mu.RLock()
			info, ok := t.local[connectionID]
			t.mu.RUnlock()
			return info, ok
		}
		return channel.RateLimitInfo{}, false
	}
	t.mu.RLock()
	info, ok := t.local[connectionID]
	t.mu.RUnlock()
	return info, ok
}

// Set records fresh telemetry.  Unknown telemetry (response carried no
// headers) is not stored; stale knowledge beats none, garbage beats
// neither.
func (t *telemetryCache) Set(ctx context.Context, connectionID uint64, info channel.RateLimitInfo) {
	if !info.Known {
		return
	}
	t.mu.Lock()
	t.local[connectionID] = info
	t.mu.Unlock()
	if t.rdb != nil {
		if raw, err := json.Marshal(info); err == nil {
			_ = t.rdb.Set(ctx, telemetryKey(connectionID), raw, telemetryTTL).Err()
		}
	}
}
