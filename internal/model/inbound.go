package model

import "time"

// InboundStatus is the processing state of one delivery attempt.
// Transitions: PENDING -> PROCESSED | ERROR.  A re-delivery of the same
// (connection, channel reservation id) pair updates the existing row in
// place; it never creates a second row or a second Reservation.
type InboundStatus string

const (
	InboundPending   InboundStatus = "PENDING"
	InboundProcessed InboundStatus = "PROCESSED"
	InboundError     InboundStatus = "ERROR"
)

// InboundReservation is the audit/staging row written for every booking
// delivery from a channel, regardless of whether processing succeeded.
// (ConnectionID, ChannelReservationID) is the natural idempotency key.
//
// Fields:
//  RawPayload    – the delivery body exactly as received, for replay and
//                  operator inspection.
//  ReservationID – resulting reservation, set only on PROCESSED.
//  ErrorDetail   – human-readable failure description, set only on ERROR.
//  Warnings      – non-fatal notes (defaulted mapping, policy overbooking).
type InboundReservation struct {
	ID                   uint64        // inbound_reservations.id
	ConnectionID         uint64        // inbound_reservations.connection_id
	ChannelReservationID string        // inbound_reservations.channel_reservation_id
	RawPayload           string        // inbound_reservations.raw_payload
	Status               InboundStatus // inbound_reservations.status
	ReservationID        *uint64       // inbound_reservations.reservation_id (nullable)
	ErrorDetail          string        // inbound_reservations.error_detail
	Warnings             string        // inbound_reservations.warnings (newline separated)
	CreatedAt            time.Time     // inbound_reservations.created_at
	UpdatedAt            time.Time     // inbound_reservations.updated_at
}
