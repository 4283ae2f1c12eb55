package model

import "time"

// RoomType is a bookable room category of a hotel.  The core only reads
// room types (lookup by code, by hotel, by id); CRUD lives in the
// surrounding property-management application.
type RoomType struct {
	ID        uint64    // room_types.id
	HotelID   uint64    // room_types.hotel_id
	Code      string    // room_types.code (e.g. "STD", "DLX")
	Name      string    // room_types.name
	Capacity  int       // room_types.capacity (max guests per room)
	CreatedAt time.Time // room_types.created_at
}

// RatePlan is a pricing scheme attached to a hotel.  Like room types it is
// lookup-only from the core's perspective.
type RatePlan struct {
	ID        uint64    // rate_plans.id
	HotelID   uint64    // rate_plans.hotel_id
	Code      string    // rate_plans.code (e.g. "BAR", "NR")
	Name      string    // rate_plans.name
	CreatedAt time.Time // rate_plans.created_at
}
