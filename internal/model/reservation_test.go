package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapChannelStatus(t *testing.T) {
	assert.Equal(t, StatusConfirmed, MapChannelStatus("confirmed"))
	assert.Equal(t, StatusConfirmed, MapChannelStatus("CONFIRMED"))
	assert.Equal(t, StatusCancelled, MapChannelStatus("cancelled"))
	assert.Equal(t, StatusCancelled, MapChannelStatus("canceled"))
	assert.Equal(t, StatusTentative, MapChannelStatus("tentative"))
	assert.Equal(t, StatusNoShow, MapChannelStatus("no_show"))

	// Unknown vocabulary defaults to CONFIRMED so a booking is never lost
	// to an unrecognized status string.
	assert.Equal(t, StatusConfirmed, MapChannelStatus("whatever-the-channel-sent"))
	assert.Equal(t, StatusConfirmed, MapChannelStatus(""))
}

func TestCountsAgainstAllocation(t *testing.T) {
	counting := []ReservationStatus{StatusConfirmed, StatusInHouse, StatusBooked}
	for _, s := range counting {
		assert.True(t, s.CountsAgainstAllocation(), string(s))
	}
	free := []ReservationStatus{StatusTentative, StatusCancelled, StatusNoShow, StatusCheckedOut}
	for _, s := range free {
		assert.False(t, s.CountsAgainstAllocation(), string(s))
	}
}
