package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelciro/channel-sync/internal/model"
)

func addStay(f *fakeReservations, roomTypeID uint64, checkIn, checkOut string, status model.ReservationStatus) {
	f.nextID++
	f.stored = append(f.stored, model.Reservation{
		ID:         f.nextID,
		HotelID:    1,
		RoomTypeID: roomTypeID,
		CheckIn:    day(checkIn),
		CheckOut:   day(checkOut),
		Status:     status,
	})
}

func TestCheckUnrestrictedWithoutAllocationRow(t *testing.T) {
	checker := NewAllocationChecker(&fakeAllocations{}, &fakeReservations{}, FailOpen)

	d, err := checker.Check(context.Background(), 1, 10, 5, day("2026-03-01"), day("2026-03-04"))
	require.NoError(t, err)
	assert.True(t, d.Available)
	assert.False(t, d.AllowOverbooking)
}

func TestCheckAllotmentExhaustion(t *testing.T) {
	allocs := &fakeAllocations{alloc: &model.ChannelAllocation{Allotment: 3}}
	res := &fakeReservations{}
	checker := NewAllocationChecker(allocs, res, FailOpen)
	ctx := context.Background()

	// Fill the allotment one overlapping stay at a time.
	for i := 0; i < 3; i++ {
		d, err := checker.Check(ctx, 1, 10, 5, day("2026-03-01"), day("2026-03-04"))
		require.NoError(t, err)
		assert.True(t, d.Available, "booking %d should fit", i+1)
		addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusConfirmed)
	}

	// The fourth does not fit and overbooking is off.
	d, err := checker.Check(ctx, 1, 10, 5, day("2026-03-01"), day("2026-03-04"))
	require.NoError(t, err)
	assert.False(t, d.Available)
	assert.False(t, d.AllowOverbooking)
	assert.Contains(t, d.Reason, "allotment 3 exhausted")

	// A back-to-back stay shares no night and still fits.
	d, err = checker.Check(ctx, 1, 10, 5, day("2026-03-04"), day("2026-03-06"))
	require.NoError(t, err)
	assert.True(t, d.Available)
}

func TestCheckIgnoresNonCountingStatuses(t *testing.T) {
	allocs := &fakeAllocations{alloc: &model.ChannelAllocation{Allotment: 1}}
	res := &fakeReservations{}
	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusCancelled)
	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusNoShow)
	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusTentative)
	checker := NewAllocationChecker(allocs, res, FailOpen)

	d, err := checker.Check(context.Background(), 1, 10, 5, day("2026-03-02"), day("2026-03-03"))
	require.NoError(t, err)
	assert.True(t, d.Available)
}

func TestCheckOverbookingCap(t *testing.T) {
	allocs := &fakeAllocations{alloc: &model.ChannelAllocation{
		Allotment:          2,
		OverbookingEnabled: true,
		MaxOverbooking:     1,
	}}
	res := &fakeReservations{}
	checker := NewAllocationChecker(allocs, res, FailOpen)
	ctx := context.Background()

	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusConfirmed)
	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusConfirmed)

	// One past the allotment is allowed under the cap.
	d, err := checker.Check(ctx, 1, 10, 5, day("2026-03-01"), day("2026-03-04"))
	require.NoError(t, err)
	assert.False(t, d.Available)
	assert.True(t, d.AllowOverbooking)

	addStay(res, 10, "2026-03-01", "2026-03-04", model.StatusBooked)

	// The cap is reached; the permission is withdrawn.
	d, err = checker.Check(ctx, 1, 10, 5, day("2026-03-01"), day("2026-03-04"))
	require.NoError(t, err)
	assert.False(t, d.Available)
	assert.False(t, d.AllowOverbooking)
	assert.Contains(t, d.Reason, "overbooking cap reached")
}

func TestCheckFailurePolicy(t *testing.T) {
	boom := errors.New("db down")

	open := NewAllocationChecker(&fakeAllocations{err: boom}, &fakeReservations{}, FailOpen)
	d, err := open.Check(context.Background(), 1, 10, 5, day("2026-03-01"), day("2026-03-02"))
	require.NoError(t, err)
	assert.True(t, d.Available)

	closed := NewAllocationChecker(&fakeAllocations{err: boom}, &fakeReservations{}, FailClosed)
	d, err = closed.Check(context.Background(), 1, 10, 5, day("2026-03-01"), day("2026-03-02"))
	require.Error(t, err)
	assert.False(t, d.Available)

	// The count failing is handled the same way.
	closedCount := NewAllocationChecker(
		&fakeAllocations{alloc: &model.ChannelAllocation{Allotment: 1}},
		&fakeReservations{countErr: boom}, FailClosed)
	_, err = closedCount.Check(context.Background(), 1, 10, 5, day("2026-03-01"), day("2026-03-02"))
	require.Error(t, err)
}
