package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stashspot/service-booking/internal/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// StartSkewTolerance is how far in the past a booking start may lie at
// creation time, absorbing clock skew between client and server.
const StartSkewTolerance = 60 * time.Second

// Booking is the aggregate root for the booking domain. All state changes go
// through named transitions; bookings are never hard-deleted.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	unitID        uuid.UUID
	renterID      uuid.UUID
	status        BookingStatus

	startTime time.Time
	endTime   time.Time

	checkInAt   *time.Time
	checkOutAt  *time.Time
	cancelledAt *time.Time
	expiredAt   *time.Time

	totalPrice decimal.Decimal
	currency   string

	notes        string
	cancelReason string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending.
// The now argument anchors the future-start guard so callers control the clock.
func NewBooking(
	unitID uuid.UUID,
	renterID uuid.UUID,
	start time.Time,
	end time.Time,
	totalPrice decimal.Decimal,
	currency string,
	notes string,
	now time.Time,
) (*Booking, error) {
	if unitID == uuid.Nil {
		return nil, domain.NewValidationError("unit ID is required")
	}
	if renterID == uuid.Nil {
		return nil, domain.NewValidationError("renter ID is required")
	}
	if !end.After(start) {
		return nil, domain.NewFieldValidationError("end", "end must be after start")
	}
	if start.Before(now.Add(-StartSkewTolerance)) {
		return nil, domain.NewFieldValidationError("start", "start must not be in the past")
	}
	if totalPrice.IsNegative() {
		return nil, domain.NewValidationError("total price must not be negative")
	}
	if currency == "" {
		return nil, domain.NewValidationError("currency is required")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	nowUTC := now.UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		unitID:        unitID,
		renterID:      renterID,
		status:        StatusPending,
		startTime:     start.UTC(),
		endTime:       end.UTC(),
		totalPrice:    totalPrice,
		currency:      currency,
		notes:         notes,
		version:       1,
		createdAt:     nowUTC,
		updatedAt:     nowUTC,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	unitID uuid.UUID,
	renterID uuid.UUID,
	status BookingStatus,
	startTime time.Time,
	endTime time.Time,
	checkInAt *time.Time,
	checkOutAt *time.Time,
	cancelledAt *time.Time,
	expiredAt *time.Time,
	totalPrice decimal.Decimal,
	currency string,
	notes string,
	cancelReason string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:            id,
		bookingNumber: bookingNumber,
		unitID:        unitID,
		renterID:      renterID,
		status:        status,
		startTime:     startTime,
		endTime:       endTime,
		checkInAt:     checkInAt,
		checkOutAt:    checkOutAt,
		cancelledAt:   cancelledAt,
		expiredAt:     expiredAt,
		totalPrice:    totalPrice,
		currency:      currency,
		notes:         notes,
		cancelReason:  cancelReason,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// UnitID returns the storage unit this booking holds.
func (b *Booking) UnitID() uuid.UUID { return b.unitID }

// RenterID returns the requesting user's ID.
func (b *Booking) RenterID() uuid.UUID { return b.renterID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// StartTime returns the inclusive start of the booked interval (UTC).
func (b *Booking) StartTime() time.Time { return b.startTime }

// EndTime returns the exclusive end of the booked interval (UTC).
func (b *Booking) EndTime() time.Time { return b.endTime }

// CheckInAt returns the check-in time, or nil if not checked in.
func (b *Booking) CheckInAt() *time.Time { return b.checkInAt }

// CheckOutAt returns the check-out time, or nil if not checked out.
func (b *Booking) CheckOutAt() *time.Time { return b.checkOutAt }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// ExpiredAt returns the time the pending hold expired.
func (b *Booking) ExpiredAt() *time.Time { return b.expiredAt }

// TotalPrice returns the computed total price.
func (b *Booking) TotalPrice() decimal.Decimal { return b.totalPrice }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// Notes returns any additional notes for the booking.
func (b *Booking) Notes() string { return b.notes }

// CancelReason returns the cancellation reason.
func (b *Booking) CancelReason() string { return b.cancelReason }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// Interval returns the booking's half-open interval [start, end).
func (b *Booking) Interval() (time.Time, time.Time) { return b.startTime, b.endTime }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed after payment capture.
func (b *Booking) Confirm(now time.Time) error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	b.status = StatusConfirmed
	b.updatedAt = now.UTC()
	return nil
}

// CheckIn transitions the booking from confirmed to active. The renter must
// check in inside the booked window; grace periods are the caller's policy.
func (b *Booking) CheckIn(now time.Time) error {
	if !b.status.CanTransitionTo(StatusActive) {
		return domain.NewInvalidStateError(string(b.status), string(StatusActive))
	}
	if now.Before(b.startTime) || now.After(b.endTime) {
		return domain.NewFieldValidationError("check_in", "check-in must happen within the booked window")
	}
	nowUTC := now.UTC()
	b.status = StatusActive
	b.checkInAt = &nowUTC
	b.updatedAt = nowUTC
	return nil
}

// CheckOut transitions the booking from active to completed.
func (b *Booking) CheckOut(now time.Time) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	nowUTC := now.UTC()
	b.status = StatusCompleted
	b.checkOutAt = &nowUTC
	b.updatedAt = nowUTC
	return nil
}

// Extend pushes the end time out and adds the incremental charge for the
// added interval. The booking stays in its current status. Callers must have
// re-validated availability of [current end, newEnd) first.
func (b *Booking) Extend(newEnd time.Time, additionalCharge decimal.Decimal, now time.Time) error {
	if !b.status.CanBeExtended() {
		return domain.NewConflictError(fmt.Sprintf("booking in state %s cannot be extended", b.status))
	}
	if !newEnd.After(b.endTime) {
		return domain.NewFieldValidationError("end", "new end must be after the current end")
	}
	if additionalCharge.IsNegative() {
		return domain.NewValidationError("additional charge must not be negative")
	}
	b.endTime = newEnd.UTC()
	b.totalPrice = b.totalPrice.Add(additionalCharge)
	b.updatedAt = now.UTC()
	return nil
}

// Cancel transitions the booking to cancelled if it is not in a terminal state.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	nowUTC := now.UTC()
	b.status = StatusCancelled
	b.cancelReason = reason
	b.cancelledAt = &nowUTC
	b.updatedAt = nowUTC
	return nil
}

// Expire transitions a pending booking whose hold deadline passed to expired.
// Driven by the scheduled sweep, never by a user action.
func (b *Booking) Expire(now time.Time) error {
	if !b.status.CanTransitionTo(StatusExpired) {
		return domain.NewInvalidStateError(string(b.status), string(StatusExpired))
	}
	nowUTC := now.UTC()
	b.status = StatusExpired
	b.expiredAt = &nowUTC
	b.updatedAt = nowUTC
	return nil
}

// IncrementVersion bumps the version for optimistic locking. Transitions stamp
// updatedAt themselves; the version bump is pure bookkeeping.
func (b *Booking) IncrementVersion() {
	b.version++
}

// Ref returns a lightweight reference to this booking for conflict reporting.
func (b *Booking) Ref() BookingRef {
	return BookingRef{
		ID:            b.id,
		BookingNumber: b.bookingNumber,
		Status:        b.status,
		StartTime:     b.startTime,
		EndTime:       b.endTime,
	}
}
