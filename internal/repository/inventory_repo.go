package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
)

// InventoryRepo stores per room-type-day allotment and restrictions.
// Writes are conditional on the row version (compare-and-swap) so that a
// direct edit and a concurrent channel sync cannot silently overwrite
// each other.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const inventoryColumns = `id, hotel_id, room_type_id, date, allotment, min_stay, max_stay,
       closed_to_arrival, closed_to_departure, stop_sell, version, updated_at`

func scanInventory(row interface{ Scan(...any) error }) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := row.Scan(&rec.ID, &rec.HotelID, &rec.RoomTypeID, &rec.Date,
		&rec.Allotment, &rec.MinStay, &rec.MaxStay,
		&rec.ClosedToArrival, &rec.ClosedToDeparture, &rec.StopSell,
		&rec.Version, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns the inventory row for one day, or ErrNotFound when none
// exists yet (a day without a row has allotment 0 and no restrictions).
func (r *InventoryRepo) Get(ctx context.Context, hotelID, roomTypeID uint64, date time.Time) (*model.InventoryRecord, error) {
	const q = `SELECT ` + inventoryColumns + ` FROM inventory_records
	           WHERE hotel_id = ? AND room_type_id = ? AND date = ?`
	rec, err := scanInventory(r.db.QueryRowContext(ctx, q, hotelID, roomTypeID, date.Format(dateFormat)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// GetRange returns inventory rows for [from, to), keyed by day.  Days
// without a row are simply absent from the map.
func (r *InventoryRepo) GetRange(ctx context.Context, hotelID, roomTypeID uint64, from, to time.Time) (map[string]*model.InventoryRecord, error) {
	const q = `SELECT ` + inventoryColumns + ` FROM inventory_records
	           WHERE hotel_id = ? AND room_type_id = ? AND date >= ? AND date < ?
	           ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, hotelID, roomTypeID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*model.InventoryRecord)
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out[rec.Date.UTC().Format(dateFormat)] = rec
	}
	return out, rows.Err()
}

// Insert creates the first version of a day's row.  The unique key on
// (hotel_id, room_type_id, date) turns a concurrent double-insert into an
// error the caller can retry as an update.
func (r *InventoryRepo) Insert(ctx context.Context, rec *model.InventoryRecord) error {
	const q = `INSERT INTO inventory_records
	           (hotel_id, room_type_id, date, allotment, min_stay, max_stay,
	            closed_to_arrival, closed_to_departure, stop_sell, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	res, err := r.db.ExecContext(ctx, q, rec.HotelID, rec.RoomTypeID, rec.Date.Format(dateFormat),
		rec.Allotment, rec.MinStay, rec.MaxStay,
		rec.ClosedToArrival, rec.ClosedToDeparture, rec.StopSell)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	rec.Version = 1
	return nil
}

// UpdateCAS overwrites a day's row only if the caller still holds the
// current version.  ErrVersionConflict is returned when another writer got
// there first; callers re-read and retry.
func (r *InventoryRepo) UpdateCAS(ctx context.Context, rec *model.InventoryRecord) error {
	const q = `UPDATE inventory_records
	           SET allotment = ?, min_stay = ?, max_stay = ?,
	               closed_to_arrival = ?, closed_to_departure = ?, stop_sell = ?,
	               version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, rec.Allotment, rec.MinStay, rec.MaxStay,
		rec.ClosedToArrival, rec.ClosedToDeparture, rec.StopSell, rec.ID, rec.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	rec.Version++
	return nil
}
