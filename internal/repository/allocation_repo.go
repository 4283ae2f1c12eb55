package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// AllocationRepo reads channel_allocations.  Absence of a row is a
// meaningful business state (unrestricted channel), so GetFor returns
// ErrNotFound for it and callers translate rather than treat it as a
// fault.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// GetFor returns the allocation policy for a (hotel, room type,
// connection) triple, or ErrNotFound when the channel is unrestricted.
func (r *AllocationRepo) GetFor(ctx context.Context, hotelID, roomTypeID, connectionID uint64) (*model.ChannelAllocation, error) {
	const q = `SELECT id, hotel_id, room_type_id, connection_id, allotment,
	                  overbooking_enabled, max_overbooking, created_at, updated_at
	           FROM channel_allocations
	           WHERE hotel_id = ? AND room_type_id = ? AND connection_id = ?`
	var a model.ChannelAllocation
	err := r.db.QueryRowContext(ctx, q, hotelID, roomTypeID, connectionID).Scan(
		&a.ID, &a.HotelID, &a.RoomTypeID, &a.ConnectionID, &a.Allotment,
		&a.OverbookingEnabled, &a.MaxOverbooking, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
