package model

import "time"

// ChannelAllocation limits how many rooms of a type a channel may sell and
// whether it may oversell them.  The row is optional: when no allocation
// exists for a (hotel, room type, connection) triple the channel is
// unrestricted and overbooking is disabled.
//
// Fields:
//  Allotment          – rooms of this type allotted to the channel.
//  OverbookingEnabled – whether selling past the allotment is permitted.
//  MaxOverbooking     – cap on the number of rooms sold past the allotment
//                       when overbooking is enabled (0 = no cap).
type ChannelAllocation struct {
	ID                 uint64    // channel_allocations.id
	HotelID            uint64    // channel_allocations.hotel_id
	RoomTypeID         uint64    // channel_allocations.room_type_id
	ConnectionID       uint64    // channel_allocations.connection_id
	Allotment          int       // channel_allocations.allotment
	OverbookingEnabled bool      // channel_allocations.overbooking_enabled
	MaxOverbooking     int       // channel_allocations.max_overbooking
	CreatedAt          time.Time // channel_allocations.created_at
	UpdatedAt          time.Time // channel_allocations.updated_at
}
