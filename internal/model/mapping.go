package model

import "time"

// MappingKind distinguishes which internal entity a channel code maps to.
type MappingKind string

const (
	MappingRoomType MappingKind = "ROOM_TYPE"
	MappingRatePlan MappingKind = "RATE_PLAN"
)

// ChannelMapping links a channel-local code to an internal room type or
// rate plan.  Codes are unique per (connection, kind); one internal id may
// receive mappings from many channels.  Rows are created lazily: either by
// an operator through the mapping UI (out of scope here) or automatically
// when a channel code textually matches an internal code.
type ChannelMapping struct {
	ID           uint64      // channel_mappings.id
	ConnectionID uint64      // channel_mappings.connection_id
	HotelID      uint64      // channel_mappings.hotel_id
	Kind         MappingKind // channel_mappings.kind
	ChannelCode  string      // channel_mappings.channel_code
	InternalID   uint64      // channel_mappings.internal_id
	CreatedAt    time.Time   // channel_mappings.created_at
}
