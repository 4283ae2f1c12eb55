package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
)

// ReservationRepo owns reservation row creation and the overlap queries
// the allocation checker and inventory service run.  Dates are stored as
// DATE columns; the half-open overlap test (existing.check_in <
// requested.check_out AND existing.check_out > requested.check_in) is
// expressed directly in SQL so back-to-back stays never collide.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const dateFormat = "2006-01-02"

// Create inserts a new reservation and populates the generated id.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (hotel_id, guest_id, room_type_id, rate_plan_id, check_in, check_out,
	            adults, children, status, total_amount, currency,
	            source_connection_id, channel_reservation_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.HotelID, res.GuestID, res.RoomTypeID, res.RatePlanID,
		res.CheckIn.Format(dateFormat), res.CheckOut.Format(dateFormat),
		res.Adults, res.Children, res.Status, res.TotalAmount, res.Currency,
		res.SourceConnectionID, nullIfEmpty(res.ChannelReservationID),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns one reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, hotel_id, guest_id, room_type_id, rate_plan_id, check_in, check_out,
	                  adults, children, status, total_amount, currency,
	                  source_connection_id, channel_reservation_id, created_at, updated_at
	           FROM reservations WHERE id = ?`
	var res model.Reservation
	var ratePlanID, sourceConnID sql.NullInt64
	var channelResID sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.HotelID, &res.GuestID, &res.RoomTypeID, &ratePlanID,
		&res.CheckIn, &res.CheckOut, &res.Adults, &res.Children, &res.Status,
		&res.TotalAmount, &res.Currency, &sourceConnID, &channelResID,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if ratePlanID.Valid {
		v := uint64(ratePlanID.Int64)
		res.RatePlanID = &v
	}
	if sourceConnID.Valid {
		v := uint64(sourceConnID.Int64)
		res.SourceConnectionID = &v
	}
	res.ChannelReservationID = channelResID.String
	return &res, nil
}

// CountOverlapping counts reservations of a room type, from any source
// channel, whose stay overlaps [checkIn, checkOut) and whose status
// consumes allotment (CONFIRMED, IN_HOUSE, BOOKED).
func (r *ReservationRepo) CountOverlapping(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations
	           WHERE hotel_id = ? AND room_type_id = ?
	             AND status IN ('CONFIRMED', 'IN_HOUSE', 'BOOKED')
	             AND check_in < ? AND check_out > ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, hotelID, roomTypeID,
		checkOut.Format(dateFormat), checkIn.Format(dateFormat)).Scan(&n)
	return n, err
}
