package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// MappingRepo stores (connection, channel code) -> internal id mappings.
type MappingRepo struct {
	db *sql.DB
}

// NewMappingRepo returns a new MappingRepo bound to the given database.
func NewMappingRepo(db *sql.DB) *MappingRepo { return &MappingRepo{db: db} }

// Resolve returns the internal id mapped to a channel code, or ErrNotFound
// when no mapping exists.  Codes are compared case-insensitively because
// channels are inconsistent about casing.
func (r *MappingRepo) Resolve(ctx context.Context, connectionID uint64, kind model.MappingKind, channelCode string) (uint64, error) {
	const q = `SELECT internal_id FROM channel_mappings
	           WHERE connection_id = ? AND kind = ? AND UPPER(channel_code) = UPPER(?)`
	var id uint64
	err := r.db.QueryRowContext(ctx, q, connectionID, kind, channelCode).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Create inserts a mapping row.  INSERT IGNORE makes the lazy creation
// performed after a code-equality match safe under concurrent deliveries
// of the same code; the unique key on (connection_id, kind, channel_code)
// collapses duplicates.
func (r *MappingRepo) Create(ctx context.Context, m *model.ChannelMapping) error {
	const q = `INSERT IGNORE INTO channel_mappings
	           (connection_id, hotel_id, kind, channel_code, internal_id)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.ConnectionID, m.HotelID, m.Kind, m.ChannelCode, m.InternalID)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		m.ID = uint64(id)
	}
	return nil
}
