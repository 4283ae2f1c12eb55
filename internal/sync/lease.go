package sync

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	gosync "sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otelciro/channel-sync/internal/model"
)

// releaseScript deletes a lease only if the caller still owns it, so a
// slow cycle whose lease expired cannot release a successor's lease.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// leaseManager enforces at-most-one in-flight sync cycle per (connection,
// entity type).  With Redis available the lease is distributed (SET NX +
// TTL) so multiple app instances coordinate; without it a process-local
// map still serializes cycles within one instance.
type leaseManager struct {
	rdb   *redis.Client
	mu    gosync.Mutex
	local map[string]bool
}

func newLeaseManager(rdb *redis.Client) *leaseManager {
	return &leaseManager{rdb: rdb, local: make(map[string]bool)}
}

func leaseKey(connectionID uint64, entity model.SyncEntity) string {
	return fmt.Sprintf("chansync:lease:%d:%s", connectionID, entity)
}

// Acquire takes the lease for one cycle.  The returned release func must
// be called when the cycle ends; ok is false when another cycle holds the
// lease.
func (l *leaseManager) Acquire(ctx context.Context, connectionID uint64, entity model.SyncEntity, ttl time.Duration) (release func(), ok bool) {
	key := leaseKey(connectionID, entity)

	if l.rdb == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[key] {
			return nil, false
		}
		l.local[key] = true
		return func() {
			l.mu.Lock()
			delete(l.local, key)
			l.mu.Unlock()
		}, true
	}

	token := randomToken()
	acquired, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return nil, false
	}
	return func() {
		_, _ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Result()
	}, true
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
