package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
)

// CheckpointRepo owns sync checkpoint persistence.  The sync engine is the
// only advancer; the monotonic guard lives here so that even a buggy or
// racing caller cannot move a watermark backwards through Advance.  Reset
// is the one deliberate exception, exposed for operational recovery.
type CheckpointRepo struct {
	db *sql.DB
}

// NewCheckpointRepo returns a new CheckpointRepo bound to the given database.
func NewCheckpointRepo(db *sql.DB) *CheckpointRepo { return &CheckpointRepo{db: db} }

const checkpointColumns = `id, connection_id, entity_type, watermark, window_start, window_end, updated_at`

func scanCheckpoint(row interface{ Scan(...any) error }) (*model.SyncCheckpoint, error) {
	var cp model.SyncCheckpoint
	var windowStart, windowEnd sql.NullTime
	err := row.Scan(&cp.ID, &cp.ConnectionID, &cp.EntityType, &cp.Watermark,
		&windowStart, &windowEnd, &cp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if windowStart.Valid {
		t := windowStart.Time
		cp.WindowStart = &t
	}
	if windowEnd.Valid {
		t := windowEnd.Time
		cp.WindowEnd = &t
	}
	return &cp, nil
}

// Get returns the checkpoint for a (connection, entity) pair, or
// ErrNotFound before the first cycle has persisted one.
func (r *CheckpointRepo) Get(ctx context.Context, connectionID uint64, entity model.SyncEntity) (*model.SyncCheckpoint, error) {
	const q = `SELECT ` + checkpointColumns + ` FROM sync_checkpoints
	           WHERE connection_id = ? AND entity_type = ?`
	cp, err := scanCheckpoint(r.db.QueryRowContext(ctx, q, connectionID, entity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cp, err
}

// ListByConnection returns all checkpoints of a connection for operator
// inspection.
func (r *CheckpointRepo) ListByConnection(ctx context.Context, connectionID uint64) ([]model.SyncCheckpoint, error) {
	const q = `SELECT ` + checkpointColumns + ` FROM sync_checkpoints
	           WHERE connection_id = ? ORDER BY entity_type`
	rows, err := r.db.QueryContext(ctx, q, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cps := make([]model.SyncCheckpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		cps = append(cps, *cp)
	}
	return cps, rows.Err()
}

// Advance moves the watermark forward, creating the row on first use.
// A watermark that would regress returns ErrCheckpointRegression and
// leaves the stored value untouched.  Advancing to the identical value is
// a no-op, not an error (a batch with no newer records).
func (r *CheckpointRepo) Advance(ctx context.Context, connectionID uint64, entity model.SyncEntity, watermark time.Time) error {
	cur, err := r.Get(ctx, connectionID, entity)
	if errors.Is(err, ErrNotFound) {
		const ins = `INSERT INTO sync_checkpoints (connection_id, entity_type, watermark) VALUES (?, ?, ?)`
		_, err = r.db.ExecContext(ctx, ins, connectionID, entity, watermark.UTC())
		return err
	}
	if err != nil {
		return err
	}
	if watermark.Before(cur.Watermark) {
		return ErrCheckpointRegression
	}
	if watermark.Equal(cur.Watermark) {
		return nil
	}
	// Guard again in SQL: a concurrent advance between the read and this
	// write must not be undone.
	const upd = `UPDATE sync_checkpoints
	             SET watermark = ?, updated_at = UTC_TIMESTAMP()
	             WHERE connection_id = ? AND entity_type = ? AND watermark <= ?`
	_, err = r.db.ExecContext(ctx, upd, watermark.UTC(), connectionID, entity, watermark.UTC())
	return err
}

// SetWindow stores the date-window cursor used by calendar pulls.
func (r *CheckpointRepo) SetWindow(ctx context.Context, connectionID uint64, entity model.SyncEntity, start, end time.Time) error {
	const q = `UPDATE sync_checkpoints
	           SET window_start = ?, window_end = ?, updated_at = UTC_TIMESTAMP()
	           WHERE connection_id = ? AND entity_type = ?`
	_, err := r.db.ExecContext(ctx, q, start.Format(dateFormat), end.Format(dateFormat), connectionID, entity)
	return err
}

// Reset rewinds (or initializes) a checkpoint to an explicit watermark.
// This is the operator escape hatch; it bypasses the monotonic guard on
// purpose and should be paired with a re-sync.
func (r *CheckpointRepo) Reset(ctx context.Context, connectionID uint64, entity model.SyncEntity, watermark time.Time) error {
	const q = `INSERT INTO sync_checkpoints (connection_id, entity_type, watermark)
	           VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE watermark = VALUES(watermark),
	             window_start = NULL, window_end = NULL, updated_at = UTC_TIMESTAMP()`
	_, err := r.db.ExecContext(ctx, q, connectionID, entity, watermark.UTC())
	return err
}
