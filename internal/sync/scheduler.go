package sync

import (
	"context"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
)

type connectionLister interface {
	ListActive(ctx context.Context) ([]model.ChannelConnection, error)
}

const defaultSyncFrequency = 5 * time.Minute

// Scheduler drives the engine on the per-connection cadence.  It re-reads
// the active connection set on every tick, so newly attached or
// deactivated connections take effect without a restart.  Overlap
// protection is the engine's lease, not the scheduler's bookkeeping.
type Scheduler struct {
	engine      *Engine
	connections connectionLister
	tick        time.Duration

	mu      gosync.Mutex
	lastRun map[string]time.Time
	wg      gosync.WaitGroup
}

// NewScheduler wires the scheduler over an engine.
func NewScheduler(engine *Engine, connections connectionLister) *Scheduler {
	if engine == nil || connections == nil {
		panic("nil dependency passed to NewScheduler")
	}
	return &Scheduler{
		engine:      engine,
		connections: connections,
		tick:        30 * time.Second,
		lastRun:     make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled, dispatching due cycles on every tick.
// In-flight cycles are waited for before returning.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	conns, err := s.connections.ListActive(ctx)
	if err != nil {
		log.Printf("scheduler: list active connections: %v", err)
		return
	}
	now := time.Now()
	for i := range conns {
		conn := conns[i]
		freq := time.Duration(conn.SyncFrequencyMin) * time.Minute
		if freq <= 0 {
			freq = defaultSyncFrequency
		}
		for _, entity := range entitiesFor(&conn) {
			key := fmt.Sprintf("%d:%s", conn.ID, entity)
			s.mu.Lock()
			due := now.Sub(s.lastRun[key]) >= freq
			if due {
				s.lastRun[key] = now
			}
			s.mu.Unlock()
			if !due {
				continue
			}
			s.wg.Add(1)
			go func(conn model.ChannelConnection, entity model.SyncEntity) {
				defer s.wg.Done()
				if err := s.engine.RunCycle(ctx, &conn, entity); err != nil {
					log.Printf("scheduler: cycle %d/%s: %v", conn.ID, entity, err)
				}
			}(conn, entity)
		}
	}
}

// ForceSync runs every applicable entity cycle for one connection
// immediately and synchronously, outside the cadence.  Backoff and lease
// gates still apply; a deferred cycle is not an error.
func (s *Scheduler) ForceSync(ctx context.Context, conn *model.ChannelConnection) error {
	for _, entity := range entitiesFor(conn) {
		if err := s.engine.RunCycle(ctx, conn, entity); err != nil {
			return err
		}
	}
	return nil
}

// entitiesFor lists the entity types a connection pulls.  Calendar deltas
// are pulled for every connection; bookings only where the connection
// accepts reservations.
func entitiesFor(conn *model.ChannelConnection) []model.SyncEntity {
	entities := []model.SyncEntity{model.EntityCalendar}
	if conn.ReceiveReservations {
		entities = append(entities, model.EntityBookings)
	}
	return entities
}
