package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

// FailurePolicy controls what an allocation check does when the check
// itself fails (database error). FailOpen accepts the booking, favoring
// availability over consistency, which matches the historical behavior
// of the product; FailClosed rejects it. Tunable per deployment.
type FailurePolicy int

const (
	FailOpen FailurePolicy = iota
	FailClosed
)

// Decision is the outcome of one allocation check.
type Decision struct {
	Available        bool
	AllowOverbooking bool
	Reason           string
}

type allocationStore interface {
	GetFor(ctx context.Context, hotelID, roomTypeID, connectionID uint64) (*model.ChannelAllocation, error)
}

type overlapCounter interface {
	CountOverlapping(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) (int, error)
}

// AllocationChecker decides whether a channel may accept another booking
// for a room type and date range.  Existing bookings from every channel
// count against the allotment, not just the requesting channel's own.
type AllocationChecker struct {
	allocations  allocationStore
	reservations overlapCounter
	policy       FailurePolicy
}

// NewAllocationChecker constructs a checker with the given failure policy.
func NewAllocationChecker(allocations allocationStore, reservations overlapCounter, policy FailurePolicy) *AllocationChecker {
	return &AllocationChecker{allocations: allocations, reservations: reservations, policy: policy}
}

// Check evaluates allocation for [checkIn, checkOut).  No allocation row
// means the channel is unrestricted (available, overbooking off).  With a
// row, remaining = allotment - overlapping confirmed/in-house/booked
// reservations; available when remaining > 0.  An internal error resolves
// per the failure policy instead of propagating when failing open.
func (a *AllocationChecker) Check(ctx context.Context, hotelID, roomTypeID, connectionID uint64, checkIn, checkOut time.Time) (Decision, error) {
	alloc, err := a.allocations.GetFor(ctx, hotelID, roomTypeID, connectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return Decision{Available: true}, nil
	}
	if err != nil {
		return a.failed(hotelID, roomTypeID, err)
	}

	booked, err := a.reservations.CountOverlapping(ctx, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return a.failed(hotelID, roomTypeID, err)
	}

	remaining := alloc.Allotment - booked
	d := Decision{
		Available:        remaining > 0,
		AllowOverbooking: alloc.OverbookingEnabled,
	}
	if !d.Available {
		d.Reason = fmt.Sprintf("allotment %d exhausted (%d overlapping bookings)", alloc.Allotment, booked)
		if d.AllowOverbooking && alloc.MaxOverbooking > 0 && booked >= alloc.Allotment+alloc.MaxOverbooking {
			// Policy caps how far past the allotment a channel may sell.
			d.AllowOverbooking = false
			d.Reason = fmt.Sprintf("overbooking cap reached (%d over allotment %d)", alloc.MaxOverbooking, alloc.Allotment)
		}
	}
	return d, nil
}

func (a *AllocationChecker) failed(hotelID, roomTypeID uint64, err error) (Decision, error) {
	if a.policy == FailClosed {
		return Decision{Reason: "allocation check failed"}, err
	}
	log.Printf("allocation: check failed open for hotel=%d room_type=%d: %v", hotelID, roomTypeID, err)
	return Decision{Available: true, Reason: "allocation check failed open"}, nil
}
