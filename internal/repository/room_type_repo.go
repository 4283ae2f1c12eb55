package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// RoomTypeRepo provides the lookups the identifier mapper and reservation
// writer need: by id, by internal code, and "first of hotel" for the
// documented defaulting fallback.
type RoomTypeRepo struct {
	db *sql.DB
}

// NewRoomTypeRepo returns a new RoomTypeRepo bound to the given database.
func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{db: db} }

// GetByID returns one room type or ErrNotFound.
func (r *RoomTypeRepo) GetByID(ctx context.Context, id uint64) (*model.RoomType, error) {
	const q = `SELECT id, hotel_id, code, name, capacity, created_at FROM room_types WHERE id = ?`
	var rt model.RoomType
	err := r.db.QueryRowContext(ctx, q, id).Scan(&rt.ID, &rt.HotelID, &rt.Code, &rt.Name, &rt.Capacity, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// GetByCode looks a room type up by its internal code within a hotel.
// Comparison is case-insensitive to match how channel codes are compared.
// Returns ErrNotFound when no room type carries the code.
func (r *RoomTypeRepo) GetByCode(ctx context.Context, hotelID uint64, code string) (*model.RoomType, error) {
	const q = `SELECT id, hotel_id, code, name, capacity, created_at
	           FROM room_types WHERE hotel_id = ? AND UPPER(code) = UPPER(?)`
	var rt model.RoomType
	err := r.db.QueryRowContext(ctx, q, hotelID, code).Scan(&rt.ID, &rt.HotelID, &rt.Code, &rt.Name, &rt.Capacity, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// FirstByHotel returns the hotel's first room type (lowest id), used as
// the last-resort fallback when a channel code cannot be resolved.
// Returns ErrNoRoomTypes when the hotel has none at all.
func (r *RoomTypeRepo) FirstByHotel(ctx context.Context, hotelID uint64) (*model.RoomType, error) {
	const q = `SELECT id, hotel_id, code, name, capacity, created_at
	           FROM room_types WHERE hotel_id = ? ORDER BY id LIMIT 1`
	var rt model.RoomType
	err := r.db.QueryRowContext(ctx, q, hotelID).Scan(&rt.ID, &rt.HotelID, &rt.Code, &rt.Name, &rt.Capacity, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRoomTypes
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}
