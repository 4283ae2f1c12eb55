package model

import "time"

// ChannelType categorizes the external distribution system behind a
// connection.  It mirrors the channel_connections.type enum column.
type ChannelType string

const (
	ChannelTypeOTA            ChannelType = "OTA"             // online travel agency (Booking.com, Expedia, ...)
	ChannelTypeGDS            ChannelType = "GDS"             // global distribution system
	ChannelTypeDirect         ChannelType = "DIRECT"          // hotel's own booking engine
	ChannelTypeChannelManager ChannelType = "CHANNEL_MANAGER" // aggregator such as Beds24
)

// ConnectionStatus reflects the operator-visible health of a connection.
// It is maintained by the sync engine: HEALTHY after a clean cycle, ERROR
// after a failed one and EXPIRED when the channel rejects our credential.
type ConnectionStatus string

const (
	ConnectionHealthy ConnectionStatus = "HEALTHY"
	ConnectionError   ConnectionStatus = "ERROR"
	ConnectionExpired ConnectionStatus = "EXPIRED"
)

// ChannelConnection represents one external channel account wired to a
// hotel.  A connection owns its identifier mappings, allocations and sync
// checkpoints.  Connections are deactivated rather than deleted so that
// historical reservations keep a valid source reference.
//
// Fields:
//  ID                  – primary key identifier.
//  HotelID             – hotel this integration belongs to.
//  Name                – operator-facing label (e.g. "Booking.com main").
//  Type                – kind of external system (see ChannelType).
//  BaseURL             – root URL of the channel's HTTP API.
//  Credential          – opaque credential material; the core never
//                        interprets it, the token provider does.
//  Active              – false once the integration is disconnected.
//  PushRates           – whether rate pushes are enabled for this channel.
//  PushAvailability    – whether availability pushes are enabled.
//  ReceiveReservations – whether inbound bookings are accepted.
//  SyncFrequencyMin    – minutes between incremental sync cycles.
//  Status              – last known health (see ConnectionStatus).
//  CreatedAt/UpdatedAt – audit timestamps.
type ChannelConnection struct {
	ID                  uint64           // channel_connections.id
	HotelID             uint64           // channel_connections.hotel_id
	Name                string           // channel_connections.name
	Type                ChannelType      // channel_connections.type
	BaseURL             string           // channel_connections.base_url
	Credential          string           // channel_connections.credential (opaque)
	Active              bool             // channel_connections.active
	PushRates           bool             // channel_connections.push_rates
	PushAvailability    bool             // channel_connections.push_availability
	ReceiveReservations bool             // channel_connections.receive_reservations
	SyncFrequencyMin    int              // channel_connections.sync_frequency_min
	Status              ConnectionStatus // channel_connections.status
	CreatedAt           time.Time        // channel_connections.created_at
	UpdatedAt           time.Time        // channel_connections.updated_at
}
