package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
//
// CreateIfAvailable, ExtendIfAvailable and Update are the only write paths;
// all are conditional so the no-overlap invariant survives concurrent writers.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// FindOverlapping returns references to bookings on the unit in a
	// unit-holding status whose interval intersects [start, end), optionally
	// excluding one booking id.
	FindOverlapping(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]BookingRef, error)

	// CreateIfAvailable atomically persists a new booking, failing with a
	// ConflictError if an overlapping unit-holding booking exists at write
	// time. It never overwrites; Conflict means a concurrent writer won.
	CreateIfAvailable(ctx context.Context, booking *Booking) error

	// ExtendIfAvailable persists an extension, atomically re-checking that the
	// added interval [deltaStart, booking end) is still free of other
	// unit-holding bookings at write time. Carries Update's version and status
	// guards on top of the overlap check; any violation is a ConflictError.
	// A plain Update must never move a booking's interval.
	ExtendIfAvailable(ctx context.Context, booking *Booking, expectedStatus BookingStatus, deltaStart time.Time) error

	// Update persists changes to an existing booking, rejecting with a
	// ConflictError unless the stored row still carries expectedStatus and
	// the previous version (optimistic update).
	Update(ctx context.Context, booking *Booking, expectedStatus BookingStatus) error

	// FindByRenterID retrieves bookings belonging to a renter with pagination.
	FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByUnitID retrieves bookings on a unit with pagination (admin).
	FindByUnitID(ctx context.Context, unitID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// FindExpiredPending returns pending bookings created before the given
	// cutoff, oldest first, capped at limit. Used by the hold-expiry sweep.
	FindExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
