package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

type inventoryStore interface {
	Get(ctx context.Context, hotelID, roomTypeID uint64, date time.Time) (*model.InventoryRecord, error)
	GetRange(ctx context.Context, hotelID, roomTypeID uint64, from, to time.Time) (map[string]*model.InventoryRecord, error)
	Insert(ctx context.Context, rec *model.InventoryRecord) error
	UpdateCAS(ctx context.Context, rec *model.InventoryRecord) error
}

// PushPublisher enqueues an outbound push job toward the channels.
type PushPublisher interface {
	PublishPushJob(ctx context.Context, job PushJob) error
}

// PushKind distinguishes what a push job carries.
type PushKind string

const (
	PushInventory PushKind = "INVENTORY"
	PushRates     PushKind = "RATES"
)

// PushPriority orders outbound delivery: availability changes are urgent
// (an overbooking risk grows with every minute of staleness), rate and
// restriction changes are routine.
type PushPriority string

const (
	PriorityUrgent  PushPriority = "URGENT"
	PriorityRoutine PushPriority = "ROUTINE"
)

// PushJob describes one outbound synchronization task.
type PushJob struct {
	HotelID    uint64       `json:"hotel_id"`
	RoomTypeID uint64       `json:"room_type_id"`
	DateFrom   string       `json:"date_from"`
	DateTo     string       `json:"date_to"`
	Kind       PushKind     `json:"kind"`
	Priority   PushPriority `json:"priority"`
	QueuedAt   string       `json:"queued_at"`
}

// InventoryUpdate carries the fields an update may change.  Nil pointers
// leave the stored value untouched, so partial updates compose.
type InventoryUpdate struct {
	Allotment         *int
	MinStay           *int
	MaxStay           *int
	ClosedToArrival   *bool
	ClosedToDeparture *bool
	StopSell          *bool
}

// InventoryService computes derived availability, detects overbooking and
// applies per-day inventory upserts.  It is the sole writer of derived
// availability and alerts; it does not own allotment policy (channel
// allocations do).
type InventoryService struct {
	inventory    inventoryStore
	reservations overlapCounter
	pusher       PushPublisher // optional, may be nil
	casRetries   int
}

// NewInventoryService wires the service.  pusher may be nil when no
// outbound queue is configured (pushes are then skipped, not queued).
func NewInventoryService(inventory inventoryStore, reservations overlapCounter, pusher PushPublisher) *InventoryService {
	return &InventoryService{inventory: inventory, reservations: reservations, pusher: pusher, casRetries: 3}
}

// GetStatus returns the derived per-day availability view for
// [dateFrom, dateTo).  Days without an inventory row report allotment 0.
// Available clamps at zero for display; the signed deficit is the
// overbooking check's concern.
func (s *InventoryService) GetStatus(ctx context.Context, hotelID, roomTypeID uint64, dateFrom, dateTo time.Time) ([]model.InventoryDayStatus, error) {
	days := model.DaysBetween(dateFrom, dateTo)
	records, err := s.inventory.GetRange(ctx, hotelID, roomTypeID, dateFrom, dateTo)
	if err != nil {
		return nil, fmt.Errorf("load inventory range: %w", err)
	}
	statuses := make([]model.InventoryDayStatus, 0, len(days))
	for _, day := range days {
		st := model.InventoryDayStatus{Date: day}
		if rec, ok := records[day.Format("2006-01-02")]; ok {
			st.Allotment = rec.Allotment
			st.ClosedToArrival = rec.ClosedToArrival
			st.ClosedToDeparture = rec.ClosedToDeparture
			st.StopSell = rec.StopSell
		}
		booked, err := s.reservations.CountOverlapping(ctx, hotelID, roomTypeID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("count bookings for %s: %w", day.Format("2006-01-02"), err)
		}
		st.Booked = booked
		st.Available = st.Allotment - booked
		if st.Available < 0 {
			st.Available = 0
		}
		if st.Allotment > 0 {
			st.OccupancyPct = float64(booked) / float64(st.Allotment) * 100
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// CheckOverbooking reports days in [dateFrom, dateTo) where bookings
// exceed allotment.  Deficit is signed (allotment - booked); severity is
// CRITICAL when more than 2 rooms over, WARNING otherwise.
func (s *InventoryService) CheckOverbooking(ctx context.Context, hotelID, roomTypeID uint64, dateFrom, dateTo time.Time) ([]model.OverbookingAlert, error) {
	records, err := s.inventory.GetRange(ctx, hotelID, roomTypeID, dateFrom, dateTo)
	if err != nil {
		return nil, fmt.Errorf("load inventory range: %w", err)
	}
	alerts := make([]model.OverbookingAlert, 0)
	for _, day := range model.DaysBetween(dateFrom, dateTo) {
		allotment := 0
		if rec, ok := records[day.Format("2006-01-02")]; ok {
			allotment = rec.Allotment
		}
		booked, err := s.reservations.CountOverlapping(ctx, hotelID, roomTypeID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("count bookings for %s: %w", day.Format("2006-01-02"), err)
		}
		deficit := allotment - booked
		if deficit >= 0 {
			continue
		}
		severity := model.SeverityWarning
		if -deficit > 2 {
			severity = model.SeverityCritical
		}
		alerts = append(alerts, model.OverbookingAlert{
			HotelID:    hotelID,
			RoomTypeID: roomTypeID,
			Date:       day,
			Allotment:  allotment,
			Booked:     booked,
			Deficit:    deficit,
			Severity:   severity,
		})
	}
	return alerts, nil
}

// UpdateInventory applies update to every day in [dateFrom, dateTo).
// Each day is a conditional upsert: on a version conflict the row is
// re-read and the update re-applied, so concurrent writers interleave
// instead of overwriting each other.  When allotment or stop-sell changed
// anywhere in the range an urgent push job is enqueued; restriction-only
// changes enqueue a routine one.
func (s *InventoryService) UpdateInventory(ctx context.Context, hotelID, roomTypeID uint64, dateFrom, dateTo time.Time, update InventoryUpdate) error {
	availabilityChanged := false
	restrictionsChanged := false

	for _, day := range model.DaysBetween(dateFrom, dateTo) {
		ac, rc, err := s.applyDay(ctx, hotelID, roomTypeID, day, update)
		if err != nil {
			return fmt.Errorf("update inventory for %s: %w", day.Format("2006-01-02"), err)
		}
		availabilityChanged = availabilityChanged || ac
		restrictionsChanged = restrictionsChanged || rc
	}

	if s.pusher == nil || (!availabilityChanged && !restrictionsChanged) {
		return nil
	}
	job := PushJob{
		HotelID:    hotelID,
		RoomTypeID: roomTypeID,
		DateFrom:   model.DateOnly(dateFrom).Format("2006-01-02"),
		DateTo:     model.DateOnly(dateTo).Format("2006-01-02"),
		Kind:       PushRates,
		Priority:   PriorityRoutine,
		QueuedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if availabilityChanged {
		job.Kind = PushInventory
		job.Priority = PriorityUrgent
	}
	if err := s.pusher.PublishPushJob(ctx, job); err != nil {
		// The inventory write already happened; a lost push is recovered
		// by the next full push, so log and move on.
		log.Printf("inventory: push enqueue failed for hotel=%d room_type=%d: %v", hotelID, roomTypeID, err)
	}
	return nil
}

// applyDay upserts one day and reports whether availability (allotment or
// stop-sell) or restrictions changed.
func (s *InventoryService) applyDay(ctx context.Context, hotelID, roomTypeID uint64, day time.Time, update InventoryUpdate) (availability, restrictions bool, err error) {
	for attempt := 0; attempt <= s.casRetries; attempt++ {
		rec, err := s.inventory.Get(ctx, hotelID, roomTypeID, day)
		if errors.Is(err, repository.ErrNotFound) {
			rec = &model.InventoryRecord{HotelID: hotelID, RoomTypeID: roomTypeID, Date: model.DateOnly(day)}
			a, r := applyUpdate(rec, update)
			if insErr := s.inventory.Insert(ctx, rec); insErr != nil {
				// Concurrent first insert; retry as an update.
				continue
			}
			return a, r, nil
		}
		if err != nil {
			return false, false, err
		}
		a, r := applyUpdate(rec, update)
		if !a && !r {
			return false, false, nil
		}
		switch err := s.inventory.UpdateCAS(ctx, rec); {
		case err == nil:
			return a, r, nil
		case errors.Is(err, repository.ErrVersionConflict):
			continue
		default:
			return false, false, err
		}
	}
	return false, false, repository.ErrVersionConflict
}

// applyUpdate mutates rec in place and reports what changed.
func applyUpdate(rec *model.InventoryRecord, u InventoryUpdate) (availability, restrictions bool) {
	if u.Allotment != nil && rec.Allotment != *u.Allotment {
		rec.Allotment = *u.Allotment
		availability = true
	}
	if u.StopSell != nil && rec.StopSell != *u.StopSell {
		rec.StopSell = *u.StopSell
		availability = true
	}
	if u.MinStay != nil && rec.MinStay != *u.MinStay {
		rec.MinStay = *u.MinStay
		restrictions = true
	}
	if u.MaxStay != nil && rec.MaxStay != *u.MaxStay {
		rec.MaxStay = *u.MaxStay
		restrictions = true
	}
	if u.ClosedToArrival != nil && rec.ClosedToArrival != *u.ClosedToArrival {
		rec.ClosedToArrival = *u.ClosedToArrival
		restrictions = true
	}
	if u.ClosedToDeparture != nil && rec.ClosedToDeparture != *u.ClosedToDeparture {
		rec.ClosedToDeparture = *u.ClosedToDeparture
		restrictions = true
	}
	return availability, restrictions
}
