package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// ConnectionRepo provides read access to channel_connections plus the
// status updates the sync engine performs after each cycle.  Connection
// CRUD (setup, credential edits, disconnect) belongs to the surrounding
// admin application and is not implemented here.
type ConnectionRepo struct {
	db *sql.DB
}

// NewConnectionRepo returns a new ConnectionRepo bound to the given database.
func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

const connectionColumns = `id, hotel_id, name, type, base_url, credential, active,
       push_rates, push_availability, receive_reservations,
       sync_frequency_min, status, created_at, updated_at`

func scanConnection(row interface{ Scan(...any) error }) (*model.ChannelConnection, error) {
	var c model.ChannelConnection
	err := row.Scan(
		&c.ID, &c.HotelID, &c.Name, &c.Type, &c.BaseURL, &c.Credential, &c.Active,
		&c.PushRates, &c.PushAvailability, &c.ReceiveReservations,
		&c.SyncFrequencyMin, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns one connection.  ErrNotFound is returned when no row
// with the given id exists.
func (r *ConnectionRepo) GetByID(ctx context.Context, id uint64) (*model.ChannelConnection, error) {
	const q = `SELECT ` + connectionColumns + ` FROM channel_connections WHERE id = ?`
	c, err := scanConnection(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListActive returns every active connection, ordered by id so scheduler
// startup is deterministic.
func (r *ConnectionRepo) ListActive(ctx context.Context) ([]model.ChannelConnection, error) {
	const q = `SELECT ` + connectionColumns + ` FROM channel_connections WHERE active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	conns := make([]model.ChannelConnection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

// List returns all connections including inactive ones, for the operator
// health view.
func (r *ConnectionRepo) List(ctx context.Context) ([]model.ChannelConnection, error) {
	const q = `SELECT ` + connectionColumns + ` FROM channel_connections ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	conns := make([]model.ChannelConnection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *c)
	}
	return conns, rows.Err()
}

// SetStatus records the connection's operator-visible health.  The sync
// engine calls this after every cycle.
func (r *ConnectionRepo) SetStatus(ctx context.Context, id uint64, status model.ConnectionStatus) error {
	const q = `UPDATE channel_connections SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}
