package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

func testMapper() (*Mapper, *fakeMappings, *fakeRoomTypes) {
	mappings := newFakeMappings()
	roomTypes := &fakeRoomTypes{types: []model.RoomType{
		{ID: 11, HotelID: 1, Code: "STD", Name: "Standard", Capacity: 2},
		{ID: 12, HotelID: 1, Code: "DLX", Name: "Deluxe", Capacity: 4},
	}}
	ratePlans := &fakeRatePlans{plans: []model.RatePlan{
		{ID: 21, HotelID: 1, Code: "BAR"},
	}}
	return NewMapper(mappings, roomTypes, ratePlans), mappings, roomTypes
}

func TestResolveRoomTypeExplicitMappingWins(t *testing.T) {
	m, mappings, _ := testMapper()
	// The stored mapping points the channel's "STD" at the deluxe room, so
	// it must win over the code-equality match.
	mappings.byKey[mappingKey(5, model.MappingRoomType, "STD")] = 12

	res, err := m.ResolveRoomType(context.Background(), 5, 1, "STD")
	require.NoError(t, err)
	assert.Equal(t, Mapped, res.Kind)
	assert.Equal(t, uint64(12), res.ID)
}

func TestResolveRoomTypeCodeMatchIsRemembered(t *testing.T) {
	m, mappings, _ := testMapper()

	res, err := m.ResolveRoomType(context.Background(), 5, 1, "dlx")
	require.NoError(t, err)
	assert.Equal(t, Mapped, res.Kind)
	assert.Equal(t, uint64(12), res.ID)

	// The match was persisted as an explicit mapping.
	require.Len(t, mappings.created, 1)
	assert.Equal(t, uint64(12), mappings.created[0].InternalID)
	assert.Equal(t, model.MappingRoomType, mappings.created[0].Kind)
}

func TestResolveRoomTypeDefaultsToFirst(t *testing.T) {
	m, _, _ := testMapper()

	res, err := m.ResolveRoomType(context.Background(), 5, 1, "SUITE-XL")
	require.NoError(t, err)
	assert.Equal(t, Defaulted, res.Kind)
	assert.Equal(t, uint64(11), res.ID)
	assert.Contains(t, res.Reason, "SUITE-XL")

	// Empty code takes the same fallback.
	res, err = m.ResolveRoomType(context.Background(), 5, 1, "  ")
	require.NoError(t, err)
	assert.Equal(t, Defaulted, res.Kind)
}

func TestResolveRoomTypeUnresolvableWithoutRoomTypes(t *testing.T) {
	mapper := NewMapper(newFakeMappings(), &fakeRoomTypes{}, &fakeRatePlans{})

	res, err := mapper.ResolveRoomType(context.Background(), 5, 99, "STD")
	require.ErrorIs(t, err, repository.ErrNoRoomTypes)
	assert.Equal(t, Unresolvable, res.Kind)
}

func TestResolveRatePlan(t *testing.T) {
	m, _, _ := testMapper()

	res, err := m.ResolveRatePlan(context.Background(), 5, 1, "BAR")
	require.NoError(t, err)
	assert.Equal(t, Mapped, res.Kind)
	assert.Equal(t, uint64(21), res.ID)

	res, err = m.ResolveRatePlan(context.Background(), 5, 1, "PROMO")
	require.NoError(t, err)
	assert.Equal(t, Defaulted, res.Kind)
	assert.Equal(t, uint64(21), res.ID)
}
