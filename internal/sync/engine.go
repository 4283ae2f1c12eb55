package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otelciro/channel-sync/internal/channel"
	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
	"github.com/otelciro/channel-sync/internal/service"
)

type checkpointStore interface {
	Get(ctx context.Context, connectionID uint64, entity model.SyncEntity) (*model.SyncCheckpoint, error)
	Advance(ctx context.Context, connectionID uint64, entity model.SyncEntity, watermark time.Time) error
}

type cycleLogStore interface {
	Insert(ctx context.Context, l *model.SyncCycleLog) error
}

type statusStore interface {
	SetStatus(ctx context.Context, id uint64, status model.ConnectionStatus) error
}

type bookingProcessor interface {
	Process(ctx context.Context, delivery service.InboundDelivery) (*model.InboundReservation, error)
}

type calendarApplier interface {
	UpdateInventory(ctx context.Context, hotelID, roomTypeID uint64, dateFrom, dateTo time.Time, update service.InventoryUpdate) error
}

type roomTypeResolver interface {
	ResolveRoomType(ctx context.Context, connectionID, hotelID uint64, code string) (service.Resolution, error)
}

// ClientFactory builds the API client for one connection.
type ClientFactory interface {
	ClientFor(conn *model.ChannelConnection) channel.API
}

// Options tunes the engine.  Zero fields take the defaults.
type Options struct {
	CreditThreshold int           // pause pulls when remaining credits drop below this
	CallTimeout     time.Duration // per external call
	LeaseTTL        time.Duration // cycle lease lifetime
	TransientRetry  time.Duration // backoff after transient faults
	AuthRetry       time.Duration // backoff after credential rejection
	InitialLookback time.Duration // modified-since horizon for a connection's first cycle
	PageLimit       int           // records requested per call
}

// DefaultOptions are the production settings.
func DefaultOptions() Options {
	return Options{
		CreditThreshold: 50,
		CallTimeout:     60 * time.Second,
		LeaseTTL:        5 * time.Minute,
		TransientRetry:  time.Minute,
		AuthRetry:       10 * time.Minute,
		InitialLookback: 30 * 24 * time.Hour,
		PageLimit:       200,
	}
}

const defaultRateLimitPause = 5 * time.Minute

// Engine runs incremental sync cycles.  One cycle pulls the deltas for a
// single (connection, entity type) pair since the stored watermark, feeds
// them through the inbound pipeline or the inventory service, and advances
// the checkpoint only past records that reached a durable outcome.  Every
// cycle, including aborted ones, leaves a cycle log row.
type Engine struct {
	clients     ClientFactory
	checkpoints checkpointStore
	cycles      cycleLogStore
	statuses    statusStore
	pipeline    bookingProcessor
	inventory   calendarApplier
	mapper      roomTypeResolver
	backoff     *backoffGate
	leases      *leaseManager
	telemetry   *telemetryCache
	opts        Options
	now         func() time.Time
}

// NewEngine wires the engine.  rdb may be nil: leases and telemetry then
// degrade to process-local state, which is correct for single-instance
// deployments.
func NewEngine(clients ClientFactory, checkpoints checkpointStore, cycles cycleLogStore,
	statuses statusStore, pipeline bookingProcessor, inventory calendarApplier,
	mapper roomTypeResolver, rdb *redis.Client, opts Options) *Engine {
	if clients == nil || checkpoints == nil || cycles == nil || statuses == nil {
		panic("nil dependency passed to NewEngine")
	}
	def := DefaultOptions()
	if opts.CreditThreshold <= 0 {
		opts.CreditThreshold = def.CreditThreshold
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = def.LeaseTTL
	}
	if opts.TransientRetry <= 0 {
		opts.TransientRetry = def.TransientRetry
	}
	if opts.AuthRetry <= 0 {
		opts.AuthRetry = def.AuthRetry
	}
	if opts.InitialLookback <= 0 {
		opts.InitialLookback = def.InitialLookback
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = def.PageLimit
	}
	return &Engine{
		clients:     clients,
		checkpoints: checkpoints,
		cycles:      cycles,
		statuses:    statuses,
		pipeline:    pipeline,
		inventory:   inventory,
		mapper:      mapper,
		backoff:     newBackoffGate(),
		leases:      newLeaseManager(rdb),
		telemetry:   newTelemetryCache(rdb),
		opts:        opts,
		now:         time.Now,
	}
}

// Wire shapes for the pull endpoints.  modified_since is inclusive on the
// channel side, so re-advancing the watermark to a failed record's
// timestamp makes the next cycle retry it.

type bookingDelta struct {
	ModifiedAt           string              `json:"modified_at"`
	ChannelReservationID string              `json:"channel_reservation_id"`
	Guest                service.GuestData   `json:"guest_data"`
	Booking              service.BookingData `json:"booking_data"`
	Raw                  json.RawMessage     `json:"raw_data,omitempty"`
}

type bookingsPage struct {
	Bookings []bookingDelta `json:"bookings"`
	HasMore  bool           `json:"has_more"`
}

type calendarDelta struct {
	ModifiedAt        string `json:"modified_at"`
	RoomTypeCode      string `json:"room_type_code"`
	DateFrom          string `json:"date_from"`
	DateTo            string `json:"date_to"`
	Allotment         *int   `json:"allotment,omitempty"`
	MinStay           *int   `json:"min_stay,omitempty"`
	MaxStay           *int   `json:"max_stay,omitempty"`
	ClosedToArrival   *bool  `json:"closed_to_arrival,omitempty"`
	ClosedToDeparture *bool  `json:"closed_to_departure,omitempty"`
	StopSell          *bool  `json:"stop_sell,omitempty"`
}

type calendarPage struct {
	Calendar []calendarDelta `json:"calendar"`
	HasMore  bool            `json:"has_more"`
}

func opFor(entity model.SyncEntity) (string, error) {
	switch entity {
	case model.EntityBookings:
		return "bookings/changes", nil
	case model.EntityCalendar:
		return "calendar/changes", nil
	default:
		return "", fmt.Errorf("no pull operation for entity %s", entity)
	}
}

// pageStats is the outcome of processing one pulled page.
type pageStats struct {
	processed       int
	failed          int
	maxSeen         time.Time // newest modified_at that reached a durable outcome
	firstUnresolved time.Time // oldest modified_at whose outcome could not be persisted
	hasMore         bool
}

// RunCycle executes one sync cycle for (conn, entity).  A cycle that is
// skipped because of an active backoff or a concurrently held lease
// returns nil without side effects.  The returned error covers only local
// infrastructure failures (database unavailable); channel-side failures
// are classified into the cycle log instead.
func (e *Engine) RunCycle(ctx context.Context, conn *model.ChannelConnection, entity model.SyncEntity) error {
	op, err := opFor(entity)
	if err != nil {
		return err
	}
	key := leaseKey(conn.ID, entity)
	if !e.backoff.Ready(key) {
		return nil
	}
	release, ok := e.leases.Acquire(ctx, conn.ID, entity, e.opts.LeaseTTL)
	if !ok {
		return nil
	}
	defer release()

	started := e.now()
	row := &model.SyncCycleLog{ConnectionID: conn.ID, EntityType: entity, StartedAt: started.UTC()}

	// Proactive gate: if the last observed telemetry says the credit budget
	// is nearly spent, do not issue even the first call.  The checkpoint is
	// untouched, so nothing is lost; the cycle simply happens later.
	if info, ok := e.telemetry.Get(ctx, conn.ID); ok && info.Known && info.Remaining < e.opts.CreditThreshold {
		e.backoff.Trip(key, resetOrDefault(info.ResetsIn))
		row.Status = model.CycleRateLimited
		row.ErrorMessage = fmt.Sprintf("deferred: %d credits remaining, threshold %d", info.Remaining, e.opts.CreditThreshold)
		return e.finish(ctx, conn, row, started, false)
	}

	since, err := e.sinceWatermark(ctx, conn.ID, entity)
	if err != nil {
		return fmt.Errorf("load checkpoint for %d/%s: %w", conn.ID, entity, err)
	}

	client := e.clients.ClientFor(conn)
	var lastInfo channel.RateLimitInfo
	updateStatus := true

	for {
		// Mid-cycle gate: stop pulling further pages once the budget the
		// previous response reported drops below the threshold.  Pages
		// already persisted have advanced the checkpoint, so stopping here
		// loses nothing.
		if lastInfo.Known && lastInfo.Remaining < e.opts.CreditThreshold {
			e.backoff.Trip(key, resetOrDefault(lastInfo.ResetsIn))
			row.Status = model.CycleRateLimited
			row.ErrorMessage = fmt.Sprintf("stopped mid-cycle: %d credits remaining, threshold %d", lastInfo.Remaining, e.opts.CreditThreshold)
			updateStatus = false
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		payload, info, callErr := client.Call(callCtx, op, map[string]any{
			"modified_since": since.UTC().Format(time.RFC3339),
			"limit":          e.opts.PageLimit,
		})
		cancel()
		row.CreditsSpent += info.Cost
		if info.Known {
			e.telemetry.Set(ctx, conn.ID, info)
			lastInfo = info
		}
		if callErr != nil {
			updateStatus = e.classifyCallError(ctx, conn, key, row, callErr)
			break
		}

		var stats pageStats
		var procErr error
		switch entity {
		case model.EntityBookings:
			stats, procErr = e.processBookings(ctx, conn, payload)
		case model.EntityCalendar:
			stats, procErr = e.processCalendar(ctx, conn, payload)
		}
		if procErr != nil {
			row.Status = model.CycleError
			row.ErrorMessage = procErr.Error()
			break
		}
		row.Processed += stats.processed
		row.Failed += stats.failed

		// Advance only past durably persisted records.  A record whose
		// outcome could not be written caps the watermark at its own
		// timestamp so the next cycle re-pulls it.
		target := stats.maxSeen
		if !stats.firstUnresolved.IsZero() && (target.IsZero() || stats.firstUnresolved.Before(target)) {
			target = stats.firstUnresolved
		}
		if !target.IsZero() && target.After(since) {
			if err := e.checkpoints.Advance(ctx, conn.ID, entity, target); err != nil && !errors.Is(err, repository.ErrCheckpointRegression) {
				return fmt.Errorf("advance checkpoint for %d/%s: %w", conn.ID, entity, err)
			}
		}

		if !stats.firstUnresolved.IsZero() {
			row.Status = model.CyclePartial
			row.ErrorMessage = "some records could not be persisted; watermark held at the oldest failure"
			break
		}
		if !stats.hasMore || stats.maxSeen.IsZero() || !stats.maxSeen.After(since) {
			break
		}
		since = stats.maxSeen
	}

	if row.Status == "" {
		row.Status = model.CycleSuccess
		if row.Failed > 0 {
			row.Status = model.CyclePartial
		}
	}
	return e.finish(ctx, conn, row, started, updateStatus)
}

// sinceWatermark loads the stored watermark, falling back to the initial
// lookback horizon before the first cycle.
func (e *Engine) sinceWatermark(ctx context.Context, connectionID uint64, entity model.SyncEntity) (time.Time, error) {
	cp, err := e.checkpoints.Get(ctx, connectionID, entity)
	if errors.Is(err, repository.ErrNotFound) {
		return e.now().Add(-e.opts.InitialLookback), nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return cp.Watermark, nil
}

// processBookings runs every booking delta of one page through the inbound
// pipeline.  Pipeline errors are infrastructure failures (not even the
// audit row could be written); those gate the watermark.  Business
// rejections land as ERROR audit rows, count as failed and do not gate.
func (e *Engine) processBookings(ctx context.Context, conn *model.ChannelConnection, payload json.RawMessage) (pageStats, error) {
	if e.pipeline == nil {
		return pageStats{}, fmt.Errorf("no booking processor configured")
	}
	var page bookingsPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return pageStats{}, fmt.Errorf("decode bookings page: %w", err)
	}
	stats := pageStats{hasMore: page.HasMore}
	for _, d := range page.Bookings {
		ts, tsErr := time.Parse(time.RFC3339, d.ModifiedAt)
		if tsErr != nil {
			// No position in the stream; it cannot gate advancement.
			log.Printf("sync: connection %d booking %s has bad modified_at %q", conn.ID, d.ChannelReservationID, d.ModifiedAt)
			stats.failed++
			continue
		}
		out, err := e.pipeline.Process(ctx, service.InboundDelivery{
			ChannelID:            conn.ID,
			ChannelReservationID: d.ChannelReservationID,
			Guest:                d.Guest,
			Booking:              d.Booking,
			RawData:              d.Raw,
		})
		if err != nil {
			log.Printf("sync: connection %d booking %s not persisted: %v", conn.ID, d.ChannelReservationID, err)
			stats.failed++
			if stats.firstUnresolved.IsZero() || ts.Before(stats.firstUnresolved) {
				stats.firstUnresolved = ts
			}
			continue
		}
		if out.Status == model.InboundError {
			stats.failed++
		} else {
			stats.processed++
		}
		if ts.After(stats.maxSeen) {
			stats.maxSeen = ts
		}
	}
	return stats, nil
}

// processCalendar applies inventory deltas.  Room type codes resolve
// through the mapping layer like bookings do; unresolvable codes count as
// failed but do not gate the watermark (retrying cannot fix a missing
// mapping, the record is logged instead).
func (e *Engine) processCalendar(ctx context.Context, conn *model.ChannelConnection, payload json.RawMessage) (pageStats, error) {
	if e.inventory == nil || e.mapper == nil {
		return pageStats{}, fmt.Errorf("no calendar applier configured")
	}
	var page calendarPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return pageStats{}, fmt.Errorf("decode calendar page: %w", err)
	}
	stats := pageStats{hasMore: page.HasMore}
	for _, d := range page.Calendar {
		ts, tsErr := time.Parse(time.RFC3339, d.ModifiedAt)
		if tsErr != nil {
			log.Printf("sync: connection %d calendar delta has bad modified_at %q", conn.ID, d.ModifiedAt)
			stats.failed++
			continue
		}
		from, errFrom := time.Parse("2006-01-02", d.DateFrom)
		to, errTo := time.Parse("2006-01-02", d.DateTo)
		if errFrom != nil || errTo != nil || !to.After(from) {
			log.Printf("sync: connection %d calendar delta for %s has bad date range %q..%q", conn.ID, d.RoomTypeCode, d.DateFrom, d.DateTo)
			stats.failed++
			if ts.After(stats.maxSeen) {
				stats.maxSeen = ts
			}
			continue
		}
		res, err := e.mapper.ResolveRoomType(ctx, conn.ID, conn.HotelID, d.RoomTypeCode)
		if err != nil || res.Kind == service.Unresolvable {
			log.Printf("sync: connection %d calendar delta for unresolvable room type %q", conn.ID, d.RoomTypeCode)
			stats.failed++
			if ts.After(stats.maxSeen) {
				stats.maxSeen = ts
			}
			continue
		}
		err = e.inventory.UpdateInventory(ctx, conn.HotelID, res.ID, from, to, service.InventoryUpdate{
			Allotment:         d.Allotment,
			MinStay:           d.MinStay,
			MaxStay:           d.MaxStay,
			ClosedToArrival:   d.ClosedToArrival,
			ClosedToDeparture: d.ClosedToDeparture,
			StopSell:          d.StopSell,
		})
		if err != nil {
			log.Printf("sync: connection %d calendar update for %s not persisted: %v", conn.ID, d.RoomTypeCode, err)
			stats.failed++
			if stats.firstUnresolved.IsZero() || ts.Before(stats.firstUnresolved) {
				stats.firstUnresolved = ts
			}
			continue
		}
		stats.processed++
		if ts.After(stats.maxSeen) {
			stats.maxSeen = ts
		}
	}
	return stats, nil
}

// classifyCallError turns a typed channel failure into a cycle outcome and
// a backoff decision.  It reports whether the connection's health status
// should be rewritten (rate limiting is backpressure, not ill health).
func (e *Engine) classifyCallError(ctx context.Context, conn *model.ChannelConnection, key string, row *model.SyncCycleLog, err error) bool {
	var authErr *channel.AuthError
	var rlErr *channel.RateLimitedError
	var trErr *channel.TransientError
	var remErr *channel.RemoteError
	switch {
	case errors.As(err, &authErr):
		row.Status = model.CycleError
		row.ErrorMessage = err.Error()
		e.backoff.Trip(key, e.opts.AuthRetry)
		if serr := e.statuses.SetStatus(ctx, conn.ID, model.ConnectionExpired); serr != nil {
			log.Printf("sync: mark connection %d expired: %v", conn.ID, serr)
		}
		return false
	case errors.As(err, &rlErr):
		row.Status = model.CycleRateLimited
		row.ErrorMessage = err.Error()
		e.backoff.Trip(key, resetOrDefault(rlErr.ResetsIn))
		return false
	case errors.As(err, &trErr):
		row.Status = model.CycleError
		row.ErrorMessage = err.Error()
		e.backoff.Trip(key, e.opts.TransientRetry)
		return true
	case errors.As(err, &remErr):
		row.Status = model.CycleError
		row.ErrorMessage = err.Error()
		if remErr.Retryable() {
			e.backoff.Trip(key, e.opts.TransientRetry)
		}
		return true
	default:
		row.Status = model.CycleError
		row.ErrorMessage = err.Error()
		return true
	}
}

// finish writes the cycle log row and, when asked, the connection health.
func (e *Engine) finish(ctx context.Context, conn *model.ChannelConnection, row *model.SyncCycleLog, started time.Time, updateStatus bool) error {
	row.DurationMs = e.now().Sub(started).Milliseconds()
	if err := e.cycles.Insert(ctx, row); err != nil {
		return fmt.Errorf("record sync cycle for %d/%s: %w", conn.ID, row.EntityType, err)
	}
	if updateStatus {
		health := model.ConnectionHealthy
		if row.Status == model.CycleError {
			health = model.ConnectionError
		}
		if err := e.statuses.SetStatus(ctx, conn.ID, health); err != nil {
			log.Printf("sync: update connection %d status: %v", conn.ID, err)
		}
	}
	return nil
}

func resetOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultRateLimitPause
	}
	return d
}
