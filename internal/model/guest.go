package model

import "time"

// Guest is a hotel guest profile.  Guests are upserted by contact identity
// (email preferred, then phone) and are never deleted by the core.  Repeated
// deliveries of the same guest data overwrite the descriptive fields
// last-write-wins.
type Guest struct {
	ID          uint64    // guests.id
	HotelID     uint64    // guests.hotel_id
	FirstName   string    // guests.first_name
	LastName    string    // guests.last_name
	Email       string    // guests.email
	Phone       string    // guests.phone
	Nationality string    // guests.nationality
	IDNumber    string    // guests.id_number
	CreatedAt   time.Time // guests.created_at
	UpdatedAt   time.Time // guests.updated_at
}
