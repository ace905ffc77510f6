package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stashspot/service-booking/internal/domain"
)

// BookingRef is a lightweight reference to a booking, used when reporting
// interval conflicts without loading the full aggregate.
type BookingRef struct {
	ID            uuid.UUID     `json:"id"`
	BookingNumber string        `json:"booking_number"`
	Status        BookingStatus `json:"status"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
}

// OverlapFinder is the read contract the resolver needs: all bookings on a
// unit in a unit-holding status whose interval intersects [start, end),
// using the half-open overlap test existing.start < end AND existing.end > start.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]BookingRef, error)
}

// Availability is the outcome of an availability check.
type Availability struct {
	Available bool        `json:"available"`
	Conflict  *BookingRef `json:"conflict,omitempty"`
}

// AvailabilityResolver decides whether a proposed interval on a unit collides
// with existing pending, confirmed or active bookings.
//
// The check is a predicate, not a lock: a concurrent writer can still win the
// interval between this read and a subsequent insert. Creation must therefore
// always go through the repository's conditional insert, which re-runs the
// overlap check inside the write transaction.
type AvailabilityResolver struct {
	finder OverlapFinder
}

// NewAvailabilityResolver creates an AvailabilityResolver over the given finder.
func NewAvailabilityResolver(finder OverlapFinder) *AvailabilityResolver {
	return &AvailabilityResolver{finder: finder}
}

// CheckAvailable reports whether [start, end) on unitID is free. excludeID
// skips one booking, used when re-validating an extension in place. When a
// conflict exists the first conflicting booking is returned for diagnostics.
func (r *AvailabilityResolver) CheckAvailable(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (Availability, error) {
	if !end.After(start) {
		return Availability{}, domain.NewFieldValidationError("end", "end must be after start")
	}

	conflicts, err := r.finder.FindOverlapping(ctx, unitID, start, end, excludeID)
	if err != nil {
		return Availability{}, err
	}
	if len(conflicts) == 0 {
		return Availability{Available: true}, nil
	}
	return Availability{Available: false, Conflict: &conflicts[0]}, nil
}
