// Package queue defines the broker payloads and the background workers
// that move them: the publisher enqueues outbound push jobs and
// reservation confirmations, the consumers deliver them to the channels.
package queue

import "github.com/otelciro/channel-sync/internal/service"

// Queue names.  Both are durable; messages survive broker restarts.
const (
	PushQueueName         = "channel.push"
	ConfirmationQueueName = "reservation.confirmed"
)

// ReservationConfirmedEvent is published when an inbound booking has been
// written as a reservation.  It carries enough for the consumer to confirm
// back to the source channel without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID        uint64  `json:"reservation_id"`
	ConnectionID         uint64  `json:"connection_id"`
	ChannelReservationID string  `json:"channel_reservation_id"`
	HotelID              uint64  `json:"hotel_id"`
	RoomTypeID           uint64  `json:"room_type_id"`
	CheckIn              string  `json:"check_in"`
	CheckOut             string  `json:"check_out"`
	Status               string  `json:"status"`
	TotalAmount          float64 `json:"total_amount"`
	Currency             string  `json:"currency"`
	ConfirmedAt          string  `json:"confirmed_at"`
}

// PushJobEvent is the wire form of an outbound push job.
type PushJobEvent = service.PushJob
