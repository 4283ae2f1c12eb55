package model

import "time"

// InventoryRecord stores per room-type-day restrictions and allotment.
// One row exists per (hotel, room type, date).  Rows are updated both by
// internal edits and by inbound channel calendar pushes; the Version column
// makes those updates conditional so concurrent writers cannot silently
// overwrite each other (compare-and-swap on version).
type InventoryRecord struct {
	ID                uint64    // inventory_records.id
	HotelID           uint64    // inventory_records.hotel_id
	RoomTypeID        uint64    // inventory_records.room_type_id
	Date              time.Time // inventory_records.date (midnight UTC)
	Allotment         int       // inventory_records.allotment
	MinStay           int       // inventory_records.min_stay (0 = unrestricted)
	MaxStay           int       // inventory_records.max_stay (0 = unrestricted)
	ClosedToArrival   bool      // inventory_records.closed_to_arrival
	ClosedToDeparture bool      // inventory_records.closed_to_departure
	StopSell          bool      // inventory_records.stop_sell
	Version           uint64    // inventory_records.version (optimistic lock)
	UpdatedAt         time.Time // inventory_records.updated_at
}

// InventoryDayStatus is the derived availability view for one day.  It is
// computed, never stored: Booked counts confirmed/in-house/booked
// reservations overlapping the day and Available clamps the remainder at
// zero for display.
type InventoryDayStatus struct {
	Date              time.Time `json:"date"`
	Allotment         int       `json:"allotment"`
	Booked            int       `json:"booked"`
	Available         int       `json:"available"`
	OccupancyPct      float64   `json:"occupancy_pct"`
	ClosedToArrival   bool      `json:"closed_to_arrival"`
	ClosedToDeparture bool      `json:"closed_to_departure"`
	StopSell          bool      `json:"stop_sell"`
}

// AlertSeverity grades an overbooking deficit.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// OverbookingAlert reports a day where more rooms are booked than
// allotted.  Deficit is signed (allotment - booked, negative when
// overbooked); severity is CRITICAL when the magnitude exceeds 2.
type OverbookingAlert struct {
	HotelID    uint64        `json:"hotel_id"`
	RoomTypeID uint64        `json:"room_type_id"`
	Date       time.Time     `json:"date"`
	Allotment  int           `json:"allotment"`
	Booked     int           `json:"booked"`
	Deficit    int           `json:"deficit"`
	Severity   AlertSeverity `json:"severity"`
}
