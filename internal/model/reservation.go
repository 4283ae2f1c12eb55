package model

import (
	"strings"
	"time"
)

// ReservationStatus is the fixed internal status vocabulary.  Channel
// payloads arrive with channel-specific status strings and are translated
// through MapChannelStatus before a reservation is written.
type ReservationStatus string

const (
	StatusTentative  ReservationStatus = "TENTATIVE"
	StatusConfirmed  ReservationStatus = "CONFIRMED"
	StatusInHouse    ReservationStatus = "IN_HOUSE"
	StatusCheckedOut ReservationStatus = "CHECKED_OUT"
	StatusCancelled  ReservationStatus = "CANCELLED"
	StatusNoShow     ReservationStatus = "NO_SHOW"
	StatusBooked     ReservationStatus = "BOOKED"
)

// channelStatusTable translates the status vocabulary seen across channels
// into the internal enum.  Lookup is case-insensitive.  Unknown statuses
// default to CONFIRMED so that vocabulary drift on the channel side never
// blocks ingestion.
var channelStatusTable = map[string]ReservationStatus{
	"tentative":   StatusTentative,
	"option":      StatusTentative,
	"new":         StatusConfirmed,
	"confirmed":   StatusConfirmed,
	"modified":    StatusConfirmed,
	"checked_in":  StatusInHouse,
	"in_house":    StatusInHouse,
	"inhouse":     StatusInHouse,
	"checked_out": StatusCheckedOut,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
	"no_show":     StatusNoShow,
	"noshow":      StatusNoShow,
	"booked":      StatusBooked,
	"request":     StatusBooked,
}

// MapChannelStatus converts a channel's status string to the internal
// enum.  Unknown values map to StatusConfirmed.
func MapChannelStatus(s string) ReservationStatus {
	if st, ok := channelStatusTable[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return StatusConfirmed
}

// CountsAgainstAllocation reports whether a reservation in this status
// occupies a room for allocation and availability purposes.  Cancelled,
// no-show, checked-out and tentative bookings do not consume allotment.
func (s ReservationStatus) CountsAgainstAllocation() bool {
	switch s {
	case StatusConfirmed, StatusInHouse, StatusBooked:
		return true
	}
	return false
}

// Reservation is the authoritative booking record.  The date range is
// half-open: CheckIn is the first night, CheckOut is exclusive, so
// back-to-back stays never overlap.  ChannelReservationID together with
// SourceConnectionID forms the idempotency key for channel-sourced
// bookings; both are empty for direct bookings.
//
// Invariants enforced by the reservation writer:
//  CheckOut strictly after CheckIn; stay length within configured bounds;
//  occupancy non-negative and within room-type capacity.
type Reservation struct {
	ID                   uint64            // reservations.id
	HotelID              uint64            // reservations.hotel_id
	GuestID              uint64            // reservations.guest_id
	RoomTypeID           uint64            // reservations.room_type_id
	RatePlanID           *uint64           // reservations.rate_plan_id (nullable)
	CheckIn              time.Time         // reservations.check_in (date, inclusive)
	CheckOut             time.Time         // reservations.check_out (date, exclusive)
	Adults               int               // reservations.adults
	Children             int               // reservations.children
	Status               ReservationStatus // reservations.status
	TotalAmount          float64           // reservations.total_amount
	Currency             string            // reservations.currency (ISO 4217)
	SourceConnectionID   *uint64           // reservations.source_connection_id (nullable)
	ChannelReservationID string            // reservations.channel_reservation_id
	CreatedAt            time.Time         // reservations.created_at
	UpdatedAt            time.Time         // reservations.updated_at
}

// Nights returns the stay length in nights.
func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}
