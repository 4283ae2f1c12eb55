package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelciro/channel-sync/internal/model"
)

type pipelineFixture struct {
	pipeline      *Pipeline
	connections   *fakeConnections
	inbound       *fakeInbound
	guests        *fakeGuests
	mappings      *fakeMappings
	allocations   *fakeAllocations
	reservations  *fakeReservations
	confirmations *fakeConfirmations
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		connections: &fakeConnections{conns: map[uint64]*model.ChannelConnection{
			5: {ID: 5, HotelID: 1, Name: "Booking.com main", Type: model.ChannelTypeOTA,
				Active: true, ReceiveReservations: true},
		}},
		inbound:       newFakeInbound(),
		guests:        &fakeGuests{},
		mappings:      newFakeMappings(),
		allocations:   &fakeAllocations{},
		reservations:  &fakeReservations{},
		confirmations: &fakeConfirmations{},
	}
	roomTypes := &fakeRoomTypes{types: []model.RoomType{
		{ID: 11, HotelID: 1, Code: "STD", Capacity: 2},
		{ID: 12, HotelID: 1, Code: "DLX", Capacity: 4},
	}}
	ratePlans := &fakeRatePlans{plans: []model.RatePlan{{ID: 21, HotelID: 1, Code: "BAR"}}}

	f.pipeline = NewPipeline(
		f.connections,
		f.inbound,
		NewGuestResolver(f.guests),
		NewMapper(f.mappings, roomTypes, ratePlans),
		NewAllocationChecker(f.allocations, f.reservations, FailOpen),
		NewReservationWriter(f.reservations, DefaultWriterLimits()),
		roomTypes,
		f.confirmations,
	)
	return f
}

func delivery() InboundDelivery {
	return InboundDelivery{
		ChannelID:            5,
		ChannelReservationID: "BDC-1001",
		Guest: GuestData{
			FirstName: "Ayşe", LastName: "Demir",
			Email: "ayse@example.com", Phone: "+90 555 111",
		},
		Booking: BookingData{
			RoomTypeCode: "DLX",
			RatePlanCode: "BAR",
			CheckIn:      "2026-03-01",
			CheckOut:     "2026-03-04",
			Adults:       2,
			TotalAmount:  420.50,
			Currency:     "EUR",
			Status:       "confirmed",
		},
	}
}

func TestProcessHappyPath(t *testing.T) {
	f := newPipelineFixture()

	rec, err := f.pipeline.Process(context.Background(), delivery())
	require.NoError(t, err)
	assert.Equal(t, model.InboundProcessed, rec.Status)
	require.NotNil(t, rec.ReservationID)
	assert.Empty(t, rec.Warnings)

	require.Len(t, f.reservations.stored, 1)
	got := f.reservations.stored[0]
	assert.Equal(t, uint64(12), got.RoomTypeID)
	require.NotNil(t, got.RatePlanID)
	assert.Equal(t, uint64(21), *got.RatePlanID)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	assert.Len(t, f.guests.guests, 1)
	assert.Equal(t, 1, f.confirmations.published)
}

func TestProcessIdempotentRedelivery(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	first, err := f.pipeline.Process(ctx, delivery())
	require.NoError(t, err)
	second, err := f.pipeline.Process(ctx, delivery())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.ReservationID)
	assert.Equal(t, *first.ReservationID, *second.ReservationID)

	// Exactly one reservation, one guest, one confirmation.
	assert.Len(t, f.reservations.stored, 1)
	assert.Len(t, f.guests.guests, 1)
	assert.Equal(t, 1, f.confirmations.published)
}

func TestProcessValidationFailureHasNoSideEffects(t *testing.T) {
	f := newPipelineFixture()

	d := delivery()
	d.Guest.Email = "not-an-email"
	d.Booking.CheckOut = "2026-02-28"

	rec, err := f.pipeline.Process(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, model.InboundError, rec.Status)
	assert.Contains(t, rec.ErrorDetail, "validation failed")
	assert.Contains(t, rec.ErrorDetail, "guest_data.email")

	// The audit row is the only side effect.
	assert.Empty(t, f.guests.guests)
	assert.Empty(t, f.reservations.stored)
	assert.Equal(t, 0, f.confirmations.published)
}

func TestProcessMissingNaturalKeyRejectedOutright(t *testing.T) {
	f := newPipelineFixture()

	d := delivery()
	d.ChannelReservationID = "  "
	_, err := f.pipeline.Process(context.Background(), d)
	require.Error(t, err)
	assert.Empty(t, f.inbound.records)
}

func TestProcessConnectionGates(t *testing.T) {
	f := newPipelineFixture()
	f.connections.conns[5].Active = false

	rec, err := f.pipeline.Process(context.Background(), delivery())
	require.NoError(t, err)
	assert.Equal(t, model.InboundError, rec.Status)
	assert.Contains(t, rec.ErrorDetail, "inactive")

	f.connections.conns[5].Active = true
	f.connections.conns[5].ReceiveReservations = false
	rec, err = f.pipeline.Process(context.Background(), delivery())
	require.NoError(t, err)
	assert.Equal(t, model.InboundError, rec.Status)
	assert.Contains(t, rec.ErrorDetail, "does not accept reservations")
}

func TestProcessDefaultedMappingIsSurfaced(t *testing.T) {
	f := newPipelineFixture()

	d := delivery()
	d.Booking.RoomTypeCode = "SUITE-XL"
	d.Booking.Adults = 2

	rec, err := f.pipeline.Process(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, model.InboundProcessed, rec.Status)
	assert.Contains(t, rec.Warnings, "SUITE-XL")

	require.Len(t, f.reservations.stored, 1)
	assert.Equal(t, uint64(11), f.reservations.stored[0].RoomTypeID, "defaulted to the hotel's first room type")
}

func TestProcessAllocationExceededRejects(t *testing.T) {
	f := newPipelineFixture()
	f.allocations.alloc = &model.ChannelAllocation{Allotment: 1}
	addStay(f.reservations, 12, "2026-03-01", "2026-03-04", model.StatusConfirmed)

	rec, err := f.pipeline.Process(context.Background(), delivery())
	require.NoError(t, err)
	assert.Equal(t, model.InboundError, rec.Status)
	assert.Contains(t, rec.ErrorDetail, "allocation exceeded")
	assert.Len(t, f.reservations.stored, 1, "no new reservation written")
}

func TestProcessErrorRowIsReprocessedInPlace(t *testing.T) {
	f := newPipelineFixture()
	f.allocations.alloc = &model.ChannelAllocation{Allotment: 1}
	addStay(f.reservations, 12, "2026-03-01", "2026-03-04", model.StatusConfirmed)
	ctx := context.Background()

	rec, err := f.pipeline.Process(ctx, delivery())
	require.NoError(t, err)
	require.Equal(t, model.InboundError, rec.Status)

	// The blocking stay cancels; re-delivery of the same booking succeeds
	// on the same audit row.
	f.reservations.stored[0].Status = model.StatusCancelled
	rec2, err := f.pipeline.Process(ctx, delivery())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, rec2.ID)
	assert.Equal(t, model.InboundProcessed, rec2.Status)
	assert.Empty(t, rec2.ErrorDetail)
}
