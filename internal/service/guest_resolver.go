package service

import (
	"context"
	"errors"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

// GuestData is the guest portion of an inbound delivery.
type GuestData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	IDNumber    string `json:"id_number,omitempty"`
}

type guestStore interface {
	FindByEmail(ctx context.Context, hotelID uint64, email string) (*model.Guest, error)
	FindByPhone(ctx context.Context, hotelID uint64, phone string) (*model.Guest, error)
	Create(ctx context.Context, g *model.Guest) error
	Update(ctx context.Context, g *model.Guest) error
}

// GuestResolver upserts guests by contact identity.  Email wins over
// phone; the first match is overwritten last-write-wins with the incoming
// fields; no match creates a new guest.  The whole operation is idempotent
// under repeated delivery of the same data, which is what makes pipeline
// retries safe without rollback.
type GuestResolver struct {
	guests guestStore
}

// NewGuestResolver constructs a resolver over the given store.
func NewGuestResolver(guests guestStore) *GuestResolver {
	return &GuestResolver{guests: guests}
}

// Resolve returns the id of the guest matching data, creating or
// overwriting as needed.
func (r *GuestResolver) Resolve(ctx context.Context, hotelID uint64, data GuestData) (uint64, error) {
	existing, err := r.guests.FindByEmail(ctx, hotelID, data.Email)
	if errors.Is(err, repository.ErrNotFound) && data.Phone != "" {
		existing, err = r.guests.FindByPhone(ctx, hotelID, data.Phone)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}

	if existing != nil {
		existing.FirstName = data.FirstName
		existing.LastName = data.LastName
		if data.Phone != "" {
			existing.Phone = data.Phone
		}
		if data.Nationality != "" {
			existing.Nationality = data.Nationality
		}
		if data.IDNumber != "" {
			existing.IDNumber = data.IDNumber
		}
		if err := r.guests.Update(ctx, existing); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	g := &model.Guest{
		HotelID:     hotelID,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Email:       data.Email,
		Phone:       data.Phone,
		Nationality: data.Nationality,
		IDNumber:    data.IDNumber,
	}
	if err := r.guests.Create(ctx, g); err != nil {
		return 0, err
	}
	return g.ID, nil
}
