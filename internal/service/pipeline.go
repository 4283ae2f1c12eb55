package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

// BookingData is the booking portion of an inbound delivery.  Dates are
// "YYYY-MM-DD" strings on the wire and parsed during validation.
type BookingData struct {
	RoomTypeCode string  `json:"room_type_code"`
	RatePlanCode string  `json:"rate_plan_code,omitempty"`
	CheckIn      string  `json:"check_in"`
	CheckOut     string  `json:"check_out"`
	Adults       int     `json:"adults"`
	Children     int     `json:"children"`
	TotalAmount  float64 `json:"total_amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

// InboundDelivery is one booking pushed by a channel, either through the
// webhook or pulled by the sync engine.  RawData is an uninterpreted
// extension bag for channel-specific extras.
type InboundDelivery struct {
	ChannelID            uint64          `json:"channel_id"`
	ChannelReservationID string          `json:"channel_reservation_id"`
	Guest                GuestData       `json:"guest_data"`
	Booking              BookingData     `json:"booking_data"`
	RawData              json.RawMessage `json:"raw_data,omitempty"`
}

// Validate checks payload shape and returns field-level messages.  It
// performs no I/O; a non-empty result means the delivery is recorded as
// ERROR before any guest or reservation write happens.
func (d *InboundDelivery) Validate() []string {
	var errs []string
	if d.ChannelID == 0 {
		errs = append(errs, "channel_id: required")
	}
	if strings.TrimSpace(d.ChannelReservationID) == "" {
		errs = append(errs, "channel_reservation_id: required")
	}
	if strings.TrimSpace(d.Guest.FirstName) == "" {
		errs = append(errs, "guest_data.first_name: required")
	}
	if strings.TrimSpace(d.Guest.LastName) == "" {
		errs = append(errs, "guest_data.last_name: required")
	}
	if strings.TrimSpace(d.Guest.Email) == "" {
		errs = append(errs, "guest_data.email: required")
	} else if !strings.Contains(d.Guest.Email, "@") {
		errs = append(errs, "guest_data.email: invalid")
	}
	if strings.TrimSpace(d.Booking.RoomTypeCode) == "" {
		errs = append(errs, "booking_data.room_type_code: required")
	}
	checkIn, errIn := time.Parse("2006-01-02", d.Booking.CheckIn)
	if errIn != nil {
		errs = append(errs, "booking_data.check_in: invalid date, expected YYYY-MM-DD")
	}
	checkOut, errOut := time.Parse("2006-01-02", d.Booking.CheckOut)
	if errOut != nil {
		errs = append(errs, "booking_data.check_out: invalid date, expected YYYY-MM-DD")
	}
	if errIn == nil && errOut == nil && !checkOut.After(checkIn) {
		errs = append(errs, "booking_data.check_out: must be after check_in")
	}
	if d.Booking.Adults < 1 || d.Booking.Adults > 10 {
		errs = append(errs, "booking_data.adults: must be between 1 and 10")
	}
	if d.Booking.Children < 0 || d.Booking.Children > 10 {
		errs = append(errs, "booking_data.children: must be between 0 and 10")
	}
	if d.Booking.TotalAmount < 0 {
		errs = append(errs, "booking_data.total_amount: must not be negative")
	}
	if len(d.Booking.Currency) != 3 {
		errs = append(errs, "booking_data.currency: must be a 3-letter ISO code")
	}
	return errs
}

type connectionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ChannelConnection, error)
}

type inboundStore interface {
	GetByNaturalKey(ctx context.Context, connectionID uint64, channelReservationID string) (*model.InboundReservation, error)
	InsertPending(ctx context.Context, rec *model.InboundReservation) error
	MarkProcessed(ctx context.Context, id, reservationID uint64, warnings string) error
	MarkError(ctx context.Context, id uint64, detail string) error
}

// ConfirmationPublisher delivers a confirmation for a processed booking
// back toward the channel.  Failures are logged, never escalated into the
// pipeline result.
type ConfirmationPublisher interface {
	PublishReservationConfirmed(ctx context.Context, connectionID uint64, channelReservationID string, reservation *model.Reservation) error
}

// Pipeline orchestrates one externally-sourced booking through guest
// resolution, identifier mapping, allocation checking and reservation
// writing, with a durable audit row for every attempt.
//
// Idempotency: re-delivery of the same (connection, channel reservation
// id) pair short-circuits to the stored outcome when already PROCESSED.
// PENDING and ERROR deliveries are re-processed in place.  Guest and
// mapping side effects are idempotent upserts, so a failed attempt needs
// no rollback before retry.
type Pipeline struct {
	connections   connectionStore
	inbound       inboundStore
	guests        *GuestResolver
	mapper        *Mapper
	allocation    *AllocationChecker
	writer        *ReservationWriter
	roomTypes     roomTypeStore
	confirmations ConfirmationPublisher // optional, may be nil
}

// NewPipeline wires the pipeline's collaborators.  confirmations may be
// nil when no outbound queue is configured.
func NewPipeline(connections connectionStore, inbound inboundStore, guests *GuestResolver,
	mapper *Mapper, allocation *AllocationChecker, writer *ReservationWriter,
	roomTypes roomTypeStore, confirmations ConfirmationPublisher) *Pipeline {
	if connections == nil || inbound == nil || guests == nil || mapper == nil || allocation == nil || writer == nil || roomTypes == nil {
		panic("nil dependency passed to NewPipeline")
	}
	return &Pipeline{
		connections:   connections,
		inbound:       inbound,
		guests:        guests,
		mapper:        mapper,
		allocation:    allocation,
		writer:        writer,
		roomTypes:     roomTypes,
		confirmations: confirmations,
	}
}

// Process runs one delivery through the state machine
// PENDING -> PROCESSED | ERROR and returns the final audit row.  The
// returned error is non-nil only for infrastructure failures where not
// even the audit row could be written; every business failure lands in
// the row's ERROR status instead.
func (p *Pipeline) Process(ctx context.Context, delivery InboundDelivery) (*model.InboundReservation, error) {
	if delivery.ChannelID == 0 || strings.TrimSpace(delivery.ChannelReservationID) == "" {
		// Without the natural key there is nothing to record the attempt
		// under; reject outright.
		return nil, fmt.Errorf("delivery missing channel_id or channel_reservation_id")
	}

	// Idempotency short-circuit: a PROCESSED record is the stored outcome
	// of a previous delivery of the same booking.
	existing, err := p.inbound.GetByNaturalKey(ctx, delivery.ChannelID, delivery.ChannelReservationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup inbound record: %w", err)
	}
	if existing != nil && existing.Status == model.InboundProcessed {
		return existing, nil
	}

	// Record the attempt before any other side effect so retried
	// deliveries are always observable.
	raw, _ := json.Marshal(delivery)
	rec := &model.InboundReservation{
		ConnectionID:         delivery.ChannelID,
		ChannelReservationID: delivery.ChannelReservationID,
		RawPayload:           string(raw),
	}
	if err := p.inbound.InsertPending(ctx, rec); err != nil {
		return nil, fmt.Errorf("record inbound attempt: %w", err)
	}

	if errs := delivery.Validate(); len(errs) > 0 {
		return p.fail(ctx, rec, "validation failed: "+strings.Join(errs, "; "))
	}

	conn, err := p.connections.GetByID(ctx, delivery.ChannelID)
	if errors.Is(err, repository.ErrNotFound) {
		return p.fail(ctx, rec, fmt.Sprintf("channel connection %d not found", delivery.ChannelID))
	}
	if err != nil {
		return p.fail(ctx, rec, fmt.Sprintf("channel connection lookup failed: %v", err))
	}
	if !conn.Active {
		return p.fail(ctx, rec, fmt.Sprintf("channel connection %d is inactive", conn.ID))
	}
	if !conn.ReceiveReservations {
		return p.fail(ctx, rec, fmt.Sprintf("channel connection %d does not accept reservations", conn.ID))
	}

	var warnings []string

	guestID, err := p.guests.Resolve(ctx, conn.HotelID, delivery.Guest)
	if err != nil {
		return p.fail(ctx, rec, fmt.Sprintf("guest resolution failed: %v", err))
	}

	roomRes, err := p.mapper.ResolveRoomType(ctx, conn.ID, conn.HotelID, delivery.Booking.RoomTypeCode)
	if err != nil {
		return p.fail(ctx, rec, fmt.Sprintf("room type mapping failed: %v", err))
	}
	if roomRes.Kind == Defaulted {
		warnings = append(warnings, roomRes.Reason)
	}

	var ratePlanID *uint64
	if delivery.Booking.RatePlanCode != "" {
		rateRes, err := p.mapper.ResolveRatePlan(ctx, conn.ID, conn.HotelID, delivery.Booking.RatePlanCode)
		if err == nil {
			ratePlanID = &rateRes.ID
			if rateRes.Kind == Defaulted {
				warnings = append(warnings, rateRes.Reason)
			}
		} else if !errors.Is(err, repository.ErrNoRoomTypes) {
			return p.fail(ctx, rec, fmt.Sprintf("rate plan mapping failed: %v", err))
		}
		// A hotel without rate plans is fine; the reservation simply
		// carries none.
	}

	checkIn, _ := time.Parse("2006-01-02", delivery.Booking.CheckIn)
	checkOut, _ := time.Parse("2006-01-02", delivery.Booking.CheckOut)

	decision, err := p.allocation.Check(ctx, conn.HotelID, roomRes.ID, conn.ID, checkIn, checkOut)
	if err != nil {
		// Only FailClosed propagates errors out of the checker.
		return p.fail(ctx, rec, fmt.Sprintf("allocation check failed: %v", err))
	}
	if !decision.Available && !decision.AllowOverbooking {
		return p.fail(ctx, rec, "allocation exceeded: "+decision.Reason)
	}

	capacity := 0
	if rt, err := p.roomTypes.GetByID(ctx, roomRes.ID); err == nil {
		capacity = rt.Capacity
	}

	result, err := p.writer.Create(ctx, WriteInput{
		HotelID:              conn.HotelID,
		GuestID:              guestID,
		RoomTypeID:           roomRes.ID,
		RatePlanID:           ratePlanID,
		RoomTypeCapacity:     capacity,
		CheckIn:              checkIn,
		CheckOut:             checkOut,
		Adults:               delivery.Booking.Adults,
		Children:             delivery.Booking.Children,
		ChannelStatus:        delivery.Booking.Status,
		TotalAmount:          delivery.Booking.TotalAmount,
		Currency:             delivery.Booking.Currency,
		SourceConnectionID:   conn.ID,
		ChannelReservationID: delivery.ChannelReservationID,
	}, decision)
	if err != nil {
		return p.fail(ctx, rec, fmt.Sprintf("reservation write failed: %v", err))
	}
	if !result.OK() {
		return p.fail(ctx, rec, "reservation rejected: "+strings.Join(result.Errors, "; "))
	}
	warnings = append(warnings, result.Warnings...)

	if err := p.inbound.MarkProcessed(ctx, rec.ID, result.Reservation.ID, strings.Join(warnings, "\n")); err != nil {
		return nil, fmt.Errorf("mark inbound processed: %w", err)
	}
	rec.Status = model.InboundProcessed
	rid := result.Reservation.ID
	rec.ReservationID = &rid
	rec.Warnings = strings.Join(warnings, "\n")

	if p.confirmations != nil {
		if err := p.confirmations.PublishReservationConfirmed(ctx, conn.ID, delivery.ChannelReservationID, result.Reservation); err != nil {
			log.Printf("pipeline: confirmation publish failed for %d/%s: %v", conn.ID, delivery.ChannelReservationID, err)
		}
	}
	return rec, nil
}

// fail records the ERROR outcome and returns the updated row.  Guest and
// mapping side effects stay in place: they are idempotent upserts and
// re-processing is safe.
func (p *Pipeline) fail(ctx context.Context, rec *model.InboundReservation, detail string) (*model.InboundReservation, error) {
	if err := p.inbound.MarkError(ctx, rec.ID, detail); err != nil {
		return nil, fmt.Errorf("mark inbound error (%s): %w", detail, err)
	}
	rec.Status = model.InboundError
	rec.ErrorDetail = detail
	return rec, nil
}
