package repository

import (
	"context"
	"database/sql"

	"github.com/otelciro/channel-sync/internal/model"
)

// CycleLogRepo appends one row per sync cycle.  Rows are never updated;
// the log is the inspectable history behind connection health.
type CycleLogRepo struct {
	db *sql.DB
}

// NewCycleLogRepo returns a new CycleLogRepo bound to the given database.
func NewCycleLogRepo(db *sql.DB) *CycleLogRepo { return &CycleLogRepo{db: db} }

// Insert appends a cycle log row and populates the generated id.
func (r *CycleLogRepo) Insert(ctx context.Context, l *model.SyncCycleLog) error {
	const q = `INSERT INTO sync_cycle_log
	           (connection_id, entity_type, status, processed, failed, credits_spent,
	            error_message, duration_ms, started_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.ConnectionID, l.EntityType, l.Status,
		l.Processed, l.Failed, l.CreditsSpent, nullIfEmpty(l.ErrorMessage),
		l.DurationMs, l.StartedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListRecent returns the latest cycles for one connection, newest first.
func (r *CycleLogRepo) ListRecent(ctx context.Context, connectionID uint64, limit int) ([]model.SyncCycleLog, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, connection_id, entity_type, status, processed, failed,
	                  credits_spent, error_message, duration_ms, started_at
	           FROM sync_cycle_log WHERE connection_id = ?
	           ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, connectionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]model.SyncCycleLog, 0, limit)
	for rows.Next() {
		var l model.SyncCycleLog
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &l.ConnectionID, &l.EntityType, &l.Status,
			&l.Processed, &l.Failed, &l.CreditsSpent, &errMsg, &l.DurationMs, &l.StartedAt); err != nil {
			return nil, err
		}
		l.ErrorMessage = errMsg.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
