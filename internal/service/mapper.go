// Package service contains the business core: identifier mapping,
// allocation policy, guest resolution, reservation writing, the inbound
// processing pipeline and derived inventory.  Services accept small store
// interfaces so handlers wire them with repositories and tests wire them
// with fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

// ResolutionKind tags how an identifier was resolved, so callers can
// surface defaulted bookings instead of hiding them as ordinary
// successes.
type ResolutionKind int

const (
	// Mapped means an explicit stored mapping or exact internal code
	// match resolved the channel code.
	Mapped ResolutionKind = iota
	// Defaulted means the fallback to the hotel's first room type or rate
	// plan kicked in; the booking lands in the wrong category until an
	// operator adds a mapping.
	Defaulted
	// Unresolvable means even the fallback found nothing (hotel has no
	// room types at all).  This is a hard stop.
	Unresolvable
)

// Resolution is the tagged outcome of one identifier lookup.
type Resolution struct {
	Kind   ResolutionKind
	ID     uint64
	Reason string // set when Kind != Mapped
}

type mappingStore interface {
	Resolve(ctx context.Context, connectionID uint64, kind model.MappingKind, channelCode string) (uint64, error)
	Create(ctx context.Context, m *model.ChannelMapping) error
}

type roomTypeStore interface {
	GetByID(ctx context.Context, id uint64) (*model.RoomType, error)
	GetByCode(ctx context.Context, hotelID uint64, code string) (*model.RoomType, error)
	FirstByHotel(ctx context.Context, hotelID uint64) (*model.RoomType, error)
}

type ratePlanStore interface {
	GetByCode(ctx context.Context, hotelID uint64, code string) (*model.RatePlan, error)
	FirstByHotel(ctx context.Context, hotelID uint64) (*model.RatePlan, error)
}

// Mapper resolves a channel's room/rate codes to internal identifiers.
// Resolution order: explicit stored mapping, then internal-code equality,
// then the hotel's first room type/rate plan.  The final fallback is
// deliberate: a malformed channel payload must not block ingestion, at the
// cost of a miscategorized booking that operators fix by adding a mapping.
type Mapper struct {
	mappings  mappingStore
	roomTypes roomTypeStore
	ratePlans ratePlanStore
}

// NewMapper constructs a Mapper over the given stores.
func NewMapper(mappings mappingStore, roomTypes roomTypeStore, ratePlans ratePlanStore) *Mapper {
	return &Mapper{mappings: mappings, roomTypes: roomTypes, ratePlans: ratePlans}
}

// ResolveRoomType maps a channel room code to an internal room type id.
// On a successful code-equality match a mapping row is created lazily so
// the next delivery resolves through step 1.  Returns ErrNoRoomTypes
// (wrapped) only when the hotel has no room types at all.
func (m *Mapper) ResolveRoomType(ctx context.Context, connectionID, hotelID uint64, channelCode string) (Resolution, error) {
	code := strings.TrimSpace(channelCode)
	if code != "" {
		if id, err := m.mappings.Resolve(ctx, connectionID, model.MappingRoomType, code); err == nil {
			return Resolution{Kind: Mapped, ID: id}, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Resolution{Kind: Unresolvable}, err
		}
		if rt, err := m.roomTypes.GetByCode(ctx, hotelID, code); err == nil {
			m.remember(ctx, connectionID, hotelID, model.MappingRoomType, code, rt.ID)
			return Resolution{Kind: Mapped, ID: rt.ID}, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Resolution{Kind: Unresolvable}, err
		}
	}
	first, err := m.roomTypes.FirstByHotel(ctx, hotelID)
	if err != nil {
		return Resolution{Kind: Unresolvable}, err
	}
	return Resolution{
		Kind:   Defaulted,
		ID:     first.ID,
		Reason: fmt.Sprintf("room code %q has no mapping; defaulted to room type %s", channelCode, first.Code),
	}, nil
}

// ResolveRatePlan mirrors ResolveRoomType for rate plans.
func (m *Mapper) ResolveRatePlan(ctx context.Context, connectionID, hotelID uint64, channelCode string) (Resolution, error) {
	code := strings.TrimSpace(channelCode)
	if code != "" {
		if id, err := m.mappings.Resolve(ctx, connectionID, model.MappingRatePlan, code); err == nil {
			return Resolution{Kind: Mapped, ID: id}, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Resolution{Kind: Unresolvable}, err
		}
		if rp, err := m.ratePlans.GetByCode(ctx, hotelID, code); err == nil {
			m.remember(ctx, connectionID, hotelID, model.MappingRatePlan, code, rp.ID)
			return Resolution{Kind: Mapped, ID: rp.ID}, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Resolution{Kind: Unresolvable}, err
		}
	}
	first, err := m.ratePlans.FirstByHotel(ctx, hotelID)
	if err != nil {
		return Resolution{Kind: Unresolvable}, err
	}
	return Resolution{
		Kind:   Defaulted,
		ID:     first.ID,
		Reason: fmt.Sprintf("rate code %q has no mapping; defaulted to rate plan %s", channelCode, first.Code),
	}, nil
}

// remember persists a code-equality match as an explicit mapping.  Best
// effort: a failure here only costs the shortcut on the next delivery.
func (m *Mapper) remember(ctx context.Context, connectionID, hotelID uint64, kind model.MappingKind, code string, internalID uint64) {
	_ = m.mappings.Create(ctx, &model.ChannelMapping{
		ConnectionID: connectionID,
		HotelID:      hotelID,
		Kind:         kind,
		ChannelCode:  code,
		InternalID:   internalID,
	})
}
