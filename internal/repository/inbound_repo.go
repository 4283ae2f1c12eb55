package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// InboundRepo stores the audit/staging row for every delivery attempt.
// Rows are keyed naturally by (connection_id, channel_reservation_id) and
// are updated in place on re-delivery; they are never overwritten
// destructively and never deleted.
type InboundRepo struct {
	db *sql.DB
}

// NewInboundRepo returns a new InboundRepo bound to the given database.
func NewInboundRepo(db *sql.DB) *InboundRepo { return &InboundRepo{db: db} }

const inboundColumns = `id, connection_id, channel_reservation_id, raw_payload, status,
       reservation_id, error_detail, warnings, created_at, updated_at`

func scanInbound(row interface{ Scan(...any) error }) (*model.InboundReservation, error) {
	var rec model.InboundReservation
	var reservationID sql.NullInt64
	var errorDetail, warnings sql.NullString
	err := row.Scan(&rec.ID, &rec.ConnectionID, &rec.ChannelReservationID, &rec.RawPayload,
		&rec.Status, &reservationID, &errorDetail, &warnings, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reservationID.Valid {
		v := uint64(reservationID.Int64)
		rec.ReservationID = &v
	}
	rec.ErrorDetail = errorDetail.String
	rec.Warnings = warnings.String
	return &rec, nil
}

// GetByNaturalKey returns the delivery record for a (connection, channel
// reservation id) pair, or ErrNotFound on first delivery.
func (r *InboundRepo) GetByNaturalKey(ctx context.Context, connectionID uint64, channelReservationID string) (*model.InboundReservation, error) {
	const q = `SELECT ` + inboundColumns + ` FROM inbound_reservations
	           WHERE connection_id = ? AND channel_reservation_id = ?`
	rec, err := scanInbound(r.db.QueryRowContext(ctx, q, connectionID, channelReservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// InsertPending records a delivery attempt as PENDING before any other
// side effect.  On re-delivery the existing row is reset to PENDING and
// its raw payload refreshed; the unique key on the natural pair guards
// against duplicate rows under concurrent delivery.
func (r *InboundRepo) InsertPending(ctx context.Context, rec *model.InboundReservation) error {
	const q = `INSERT INTO inbound_reservations
	           (connection_id, channel_reservation_id, raw_payload, status)
	           VALUES (?, ?, ?, 'PENDING')
	           ON DUPLICATE KEY UPDATE
	             raw_payload = VALUES(raw_payload),
	             status = 'PENDING',
	             error_detail = NULL,
	             updated_at = UTC_TIMESTAMP()`
	if _, err := r.db.ExecContext(ctx, q, rec.ConnectionID, rec.ChannelReservationID, rec.RawPayload); err != nil {
		return err
	}
	rec.Status = model.InboundPending
	// Re-read to pick up the row id regardless of insert-vs-update path.
	stored, err := r.GetByNaturalKey(ctx, rec.ConnectionID, rec.ChannelReservationID)
	if err != nil {
		return err
	}
	rec.ID = stored.ID
	return nil
}

// MarkProcessed finalizes a delivery as PROCESSED with the resulting
// reservation id and any non-fatal warnings.
func (r *InboundRepo) MarkProcessed(ctx context.Context, id, reservationID uint64, warnings string) error {
	const q = `UPDATE inbound_reservations
	           SET status = 'PROCESSED', reservation_id = ?, warnings = ?, error_detail = NULL,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, reservationID, nullIfEmpty(warnings), id)
	return err
}

// MarkError finalizes a delivery as ERROR with a human-readable detail.
func (r *InboundRepo) MarkError(ctx context.Context, id uint64, detail string) error {
	const q = `UPDATE inbound_reservations
	           SET status = 'ERROR', error_detail = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, detail, id)
	return err
}
