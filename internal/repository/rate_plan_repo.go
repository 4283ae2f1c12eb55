package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// RatePlanRepo mirrors RoomTypeRepo for rate plans.  Rate plans are
// optional on inbound bookings, so the fallback chain is the same but a
// failed resolution is not fatal for the record.
type RatePlanRepo struct {
	db *sql.DB
}

// NewRatePlanRepo returns a new RatePlanRepo bound to the given database.
func NewRatePlanRepo(db *sql.DB) *RatePlanRepo { return &RatePlanRepo{db: db} }

// GetByCode looks a rate plan up by internal code (case-insensitive).
func (r *RatePlanRepo) GetByCode(ctx context.Context, hotelID uint64, code string) (*model.RatePlan, error) {
	const q = `SELECT id, hotel_id, code, name, created_at
	           FROM rate_plans WHERE hotel_id = ? AND UPPER(code) = UPPER(?)`
	var rp model.RatePlan
	err := r.db.QueryRowContext(ctx, q, hotelID, code).Scan(&rp.ID, &rp.HotelID, &rp.Code, &rp.Name, &rp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

// FirstByHotel returns the hotel's first rate plan (lowest id) or
// ErrNoRoomTypes when none exist.
func (r *RatePlanRepo) FirstByHotel(ctx context.Context, hotelID uint64) (*model.RatePlan, error) {
	const q = `SELECT id, hotel_id, code, name, created_at
	           FROM rate_plans WHERE hotel_id = ? ORDER BY id LIMIT 1`
	var rp model.RatePlan
	err := r.db.QueryRowContext(ctx, q, hotelID).Scan(&rp.ID, &rp.HotelID, &rp.Code, &rp.Name, &rp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRoomTypes
	}
	if err != nil {
		return nil, err
	}
	return &rp, nil
}
