package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelciro/channel-sync/internal/model"
)

func writeInput() WriteInput {
	return WriteInput{
		HotelID:              1,
		GuestID:              2,
		RoomTypeID:           10,
		RoomTypeCapacity:     3,
		CheckIn:              day("2026-03-01"),
		CheckOut:             day("2026-03-04"),
		Adults:               2,
		Children:             0,
		ChannelStatus:        "confirmed",
		TotalAmount:          420.50,
		Currency:             "EUR",
		SourceConnectionID:   5,
		ChannelReservationID: "BDC-123",
	}
}

func TestWriterCreatesReservation(t *testing.T) {
	store := &fakeReservations{}
	w := NewReservationWriter(store, DefaultWriterLimits())

	res, err := w.Create(context.Background(), writeInput(), Decision{Available: true})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, store.stored, 1)

	got := store.stored[0]
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, day("2026-03-01"), got.CheckIn)
	assert.Equal(t, "BDC-123", got.ChannelReservationID)
	require.NotNil(t, got.SourceConnectionID)
	assert.Equal(t, uint64(5), *got.SourceConnectionID)
	assert.Empty(t, res.Warnings)
}

func TestWriterTranslatesChannelStatus(t *testing.T) {
	store := &fakeReservations{}
	w := NewReservationWriter(store, DefaultWriterLimits())

	in := writeInput()
	in.ChannelStatus = "something-unrecognized"
	res, err := w.Create(context.Background(), in, Decision{Available: true})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, model.StatusConfirmed, res.Reservation.Status)

	in = writeInput()
	in.ChannelReservationID = "BDC-124"
	in.ChannelStatus = "canceled"
	res, err = w.Create(context.Background(), in, Decision{Available: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Reservation.Status)
}

func TestWriterValidationWritesNothing(t *testing.T) {
	store := &fakeReservations{}
	w := NewReservationWriter(store, DefaultWriterLimits())

	cases := []struct {
		name   string
		mutate func(*WriteInput)
		want   string
	}{
		{"inverted dates", func(in *WriteInput) { in.CheckOut = day("2026-02-28") }, "check_out"},
		{"too long", func(in *WriteInput) { in.CheckOut = day("2026-05-01") }, "exceeds the maximum"},
		{"no adults", func(in *WriteInput) { in.Adults = 0 }, "adults"},
		{"over capacity", func(in *WriteInput) { in.Adults = 3; in.Children = 2 }, "capacity"},
		{"negative amount", func(in *WriteInput) { in.TotalAmount = -1 }, "total_amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := writeInput()
			tc.mutate(&in)
			res, err := w.Create(context.Background(), in, Decision{Available: true})
			require.NoError(t, err)
			assert.False(t, res.OK())
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, res.Errors[0], tc.want)
		})
	}
	assert.Empty(t, store.stored)
}

func TestWriterOverbookingDecision(t *testing.T) {
	store := &fakeReservations{}
	w := NewReservationWriter(store, DefaultWriterLimits())

	// Exhausted without permission: fatal.
	res, err := w.Create(context.Background(), writeInput(),
		Decision{Available: false, AllowOverbooking: false, Reason: "allotment 3 exhausted"})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Empty(t, store.stored)

	// Exhausted with permission: written, flagged.
	res, err = w.Create(context.Background(), writeInput(),
		Decision{Available: false, AllowOverbooking: true, Reason: "allotment 3 exhausted"})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "overbooked by policy")
	assert.Len(t, store.stored, 1)
}
