package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
)

// GuestRepo provides upsert-by-identity access to guests.  The resolver
// looks up by (hotel, email) first, then (hotel, phone); this repo exposes
// both lookups plus create and overwrite.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestColumns = `id, hotel_id, first_name, last_name, email, phone, nationality, id_number, created_at, updated_at`

func scanGuest(row interface{ Scan(...any) error }) (*model.Guest, error) {
	var g model.Guest
	var phone, nationality, idNumber sql.NullString
	err := row.Scan(&g.ID, &g.HotelID, &g.FirstName, &g.LastName, &g.Email,
		&phone, &nationality, &idNumber, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Phone = phone.String
	g.Nationality = nationality.String
	g.IDNumber = idNumber.String
	return &g, nil
}

// FindByEmail returns the guest with the given email within a hotel, or
// ErrNotFound.  Emails are matched case-insensitively.
func (r *GuestRepo) FindByEmail(ctx context.Context, hotelID uint64, email string) (*model.Guest, error) {
	const q = `SELECT ` + guestColumns + ` FROM guests WHERE hotel_id = ? AND LOWER(email) = LOWER(?) LIMIT 1`
	g, err := scanGuest(r.db.QueryRowContext(ctx, q, hotelID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// FindByPhone returns the guest with the given phone within a hotel, or
// ErrNotFound.
func (r *GuestRepo) FindByPhone(ctx context.Context, hotelID uint64, phone string) (*model.Guest, error) {
	const q = `SELECT ` + guestColumns + ` FROM guests WHERE hotel_id = ? AND phone = ? LIMIT 1`
	g, err := scanGuest(r.db.QueryRowContext(ctx, q, hotelID, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// Create inserts a new guest and populates the generated id.
func (r *GuestRepo) Create(ctx context.Context, g *model.Guest) error {
	const q = `INSERT INTO guests (hotel_id, first_name, last_name, email, phone, nationality, id_number)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, g.HotelID, g.FirstName, g.LastName, g.Email,
		nullIfEmpty(g.Phone), nullIfEmpty(g.Nationality), nullIfEmpty(g.IDNumber))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// Update overwrites the descriptive fields of an existing guest
// (last-write-wins; no conflict detection by design of the resolver).
func (r *GuestRepo) Update(ctx context.Context, g *model.Guest) error {
	const q = `UPDATE guests
	           SET first_name = ?, last_name = ?, phone = ?, nationality = ?, id_number = ?,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, g.FirstName, g.LastName,
		nullIfEmpty(g.Phone), nullIfEmpty(g.Nationality), nullIfEmpty(g.IDNumber), g.ID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
