package service

import (
	"context"
	"fmt"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
)

type reservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
}

// WriterLimits bounds the invariants the reservation writer enforces.
type WriterLimits struct {
	MinStayNights int // minimum stay length, inclusive
	MaxStayNights int // maximum stay length, inclusive
	MaxAdults     int
	MaxChildren   int
}

// DefaultWriterLimits matches the limits the inbound payload schema
// advertises (adults 1..10, children 0..10).
func DefaultWriterLimits() WriterLimits {
	return WriterLimits{MinStayNights: 1, MaxStayNights: 30, MaxAdults: 10, MaxChildren: 10}
}

// WriteInput is the validated, mapped, allocation-approved input to
// createReservation.
type WriteInput struct {
	HotelID              uint64
	GuestID              uint64
	RoomTypeID           uint64
	RatePlanID           *uint64
	RoomTypeCapacity     int // 0 = unknown, skip the capacity check
	CheckIn              time.Time
	CheckOut             time.Time
	Adults               int
	Children             int
	ChannelStatus        string
	TotalAmount          float64
	Currency             string
	SourceConnectionID   uint64
	ChannelReservationID string
}

// WriteResult separates fatal errors (nothing written) from non-fatal
// warnings (reservation written, operators should look).
type WriteResult struct {
	Reservation *model.Reservation
	Errors      []string
	Warnings    []string
}

// OK reports whether the write succeeded.
func (r WriteResult) OK() bool { return len(r.Errors) == 0 && r.Reservation != nil }

// ReservationWriter creates authoritative reservation rows.  It is the
// exclusive creator of reservations for channel-sourced bookings: it
// validates business invariants, translates the channel status vocabulary
// and applies the allocation decision's overbooking permission.
type ReservationWriter struct {
	reservations reservationStore
	limits       WriterLimits
}

// NewReservationWriter constructs a writer with the given limits.
func NewReservationWriter(reservations reservationStore, limits WriterLimits) *ReservationWriter {
	return &ReservationWriter{reservations: reservations, limits: limits}
}

// Create validates in and, when valid, writes the reservation.  The
// decision argument carries the allocation outcome: an unavailable
// allocation with overbooking permitted proceeds with a warning; without
// permission it is a fatal error.  Validation failures return errors and
// write nothing.
func (w *ReservationWriter) Create(ctx context.Context, in WriteInput, decision Decision) (WriteResult, error) {
	var res WriteResult

	if !in.CheckOut.After(in.CheckIn) {
		res.Errors = append(res.Errors, "check_out must be after check_in")
	}
	nights := int(in.CheckOut.Sub(in.CheckIn).Hours() / 24)
	if len(res.Errors) == 0 {
		if nights < w.limits.MinStayNights {
			res.Errors = append(res.Errors, fmt.Sprintf("stay of %d nights is below the minimum of %d", nights, w.limits.MinStayNights))
		}
		if w.limits.MaxStayNights > 0 && nights > w.limits.MaxStayNights {
			res.Errors = append(res.Errors, fmt.Sprintf("stay of %d nights exceeds the maximum of %d", nights, w.limits.MaxStayNights))
		}
	}
	if in.Adults < 1 || in.Adults > w.limits.MaxAdults {
		res.Errors = append(res.Errors, fmt.Sprintf("adults must be between 1 and %d", w.limits.MaxAdults))
	}
	if in.Children < 0 || in.Children > w.limits.MaxChildren {
		res.Errors = append(res.Errors, fmt.Sprintf("children must be between 0 and %d", w.limits.MaxChildren))
	}
	if in.RoomTypeCapacity > 0 && in.Adults+in.Children > in.RoomTypeCapacity {
		res.Errors = append(res.Errors, fmt.Sprintf("occupancy %d exceeds room type capacity %d", in.Adults+in.Children, in.RoomTypeCapacity))
	}
	if in.TotalAmount < 0 {
		res.Errors = append(res.Errors, "total_amount must not be negative")
	}

	if !decision.Available {
		if !decision.AllowOverbooking {
			res.Errors = append(res.Errors, "allocation exceeded: "+decision.Reason)
		} else {
			res.Warnings = append(res.Warnings, "overbooked by policy: "+decision.Reason)
		}
	}

	if len(res.Errors) > 0 {
		return res, nil
	}

	sourceID := in.SourceConnectionID
	reservation := &model.Reservation{
		HotelID:              in.HotelID,
		GuestID:              in.GuestID,
		RoomTypeID:           in.RoomTypeID,
		RatePlanID:           in.RatePlanID,
		CheckIn:              model.DateOnly(in.CheckIn),
		CheckOut:             model.DateOnly(in.CheckOut),
		Adults:               in.Adults,
		Children:             in.Children,
		Status:               model.MapChannelStatus(in.ChannelStatus),
		TotalAmount:          in.TotalAmount,
		Currency:             in.Currency,
		SourceConnectionID:   &sourceID,
		ChannelReservationID: in.ChannelReservationID,
	}
	if err := w.reservations.Create(ctx, reservation); err != nil {
		return res, fmt.Errorf("create reservation: %w", err)
	}
	res.Reservation = reservation
	return res, nil
}
