package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashspot/service-booking/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	bk, err := NewBooking(
		uuid.New(), uuid.New(),
		testNow.Add(time.Hour), testNow.Add(25*time.Hour),
		decimal.RequireFromString("160.00"), "USD",
		"", testNow,
	)
	require.NoError(t, err)
	return bk
}

func TestNewBooking(t *testing.T) {
	bk := newTestBooking(t)

	assert.Equal(t, StatusPending, bk.Status())
	assert.Equal(t, int64(1), bk.Version())
	assert.True(t, strings.HasPrefix(bk.BookingNumber(), "BK-"))
	assert.Len(t, bk.BookingNumber(), 9)
	assert.Nil(t, bk.CheckInAt())
	assert.Nil(t, bk.CancelledAt())
}

func TestNewBooking_Validation(t *testing.T) {
	unitID, renterID := uuid.New(), uuid.New()
	price := decimal.RequireFromString("100")

	tests := []struct {
		name  string
		build func() (*Booking, error)
	}{
		{"missing unit", func() (*Booking, error) {
			return NewBooking(uuid.Nil, renterID, testNow.Add(time.Hour), testNow.Add(2*time.Hour), price, "USD", "", testNow)
		}},
		{"missing renter", func() (*Booking, error) {
			return NewBooking(unitID, uuid.Nil, testNow.Add(time.Hour), testNow.Add(2*time.Hour), price, "USD", "", testNow)
		}},
		{"end equals start", func() (*Booking, error) {
			return NewBooking(unitID, renterID, testNow.Add(time.Hour), testNow.Add(time.Hour), price, "USD", "", testNow)
		}},
		{"end before start", func() (*Booking, error) {
			return NewBooking(unitID, renterID, testNow.Add(2*time.Hour), testNow.Add(time.Hour), price, "USD", "", testNow)
		}},
		{"start in the past", func() (*Booking, error) {
			return NewBooking(unitID, renterID, testNow.Add(-10*time.Minute), testNow.Add(time.Hour), price, "USD", "", testNow)
		}},
		{"negative price", func() (*Booking, error) {
			return NewBooking(unitID, renterID, testNow.Add(time.Hour), testNow.Add(2*time.Hour), decimal.RequireFromString("-1"), "USD", "", testNow)
		}},
		{"missing currency", func() (*Booking, error) {
			return NewBooking(unitID, renterID, testNow.Add(time.Hour), testNow.Add(2*time.Hour), price, "", "", testNow)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestNewBooking_StartSkewTolerance(t *testing.T) {
	// A start slightly in the past is accepted; clients and servers disagree
	// on the clock by a few seconds all the time.
	bk, err := NewBooking(
		uuid.New(), uuid.New(),
		testNow.Add(-30*time.Second), testNow.Add(2*time.Hour),
		decimal.RequireFromString("20"), "USD", "", testNow,
	)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, bk.Status())

	_, err = NewBooking(
		uuid.New(), uuid.New(),
		testNow.Add(-2*time.Minute), testNow.Add(2*time.Hour),
		decimal.RequireFromString("20"), "USD", "", testNow,
	)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "start", validationErr.Field)
}

func TestBooking_Lifecycle(t *testing.T) {
	bk := newTestBooking(t)

	confirmedAt := testNow.Add(5 * time.Minute)
	require.NoError(t, bk.Confirm(confirmedAt))
	assert.Equal(t, StatusConfirmed, bk.Status())
	assert.Equal(t, confirmedAt, bk.UpdatedAt(), "transitions stamp the injected clock")

	checkIn := bk.StartTime().Add(10 * time.Minute)
	require.NoError(t, bk.CheckIn(checkIn))
	assert.Equal(t, StatusActive, bk.Status())
	require.NotNil(t, bk.CheckInAt())
	assert.Equal(t, checkIn, *bk.CheckInAt())

	require.NoError(t, bk.CheckOut(checkIn.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, bk.Status())
	require.NotNil(t, bk.CheckOutAt())
}

func TestBooking_CheckIn_OutsideWindow(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.Confirm(testNow))

	err := bk.CheckIn(bk.StartTime().Add(-time.Hour))
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, StatusConfirmed, bk.Status())
}

func TestBooking_CheckIn_FromPending(t *testing.T) {
	bk := newTestBooking(t)

	err := bk.CheckIn(bk.StartTime())
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "pending", stateErr.CurrentState)
	assert.Equal(t, StatusPending, bk.Status())
}

func TestBooking_Cancel(t *testing.T) {
	bk := newTestBooking(t)
	cancelledAt := testNow.Add(time.Minute)
	require.NoError(t, bk.Cancel("plans changed", cancelledAt))

	assert.Equal(t, StatusCancelled, bk.Status())
	assert.Equal(t, "plans changed", bk.CancelReason())
	require.NotNil(t, bk.CancelledAt())
	assert.Equal(t, cancelledAt, *bk.CancelledAt())
	assert.Equal(t, cancelledAt, bk.UpdatedAt())
}

func TestBooking_TerminalStatesRejectTransitions(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.Cancel("no longer needed", testNow))
	before := *bk

	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, bk.Confirm(testNow), &stateErr)
	assert.Equal(t, "cancelled", stateErr.CurrentState)
	require.ErrorAs(t, bk.Expire(testNow), &stateErr)
	require.ErrorAs(t, bk.Cancel("again", testNow), &stateErr)

	// Rejected transitions must not mutate the aggregate.
	assert.Equal(t, before.status, bk.status)
	assert.Equal(t, before.cancelReason, bk.cancelReason)
	assert.Equal(t, before.version, bk.version)
}

func TestBooking_Expire(t *testing.T) {
	bk := newTestBooking(t)
	expiredAt := testNow.Add(15 * time.Minute)
	require.NoError(t, bk.Expire(expiredAt))
	assert.Equal(t, StatusExpired, bk.Status())
	require.NotNil(t, bk.ExpiredAt())
	assert.Equal(t, expiredAt, *bk.ExpiredAt())

	// Only pending bookings expire.
	confirmed := newTestBooking(t)
	require.NoError(t, confirmed.Confirm(testNow))
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, confirmed.Expire(testNow), &stateErr)
}

func TestBooking_Extend(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.Confirm(testNow))

	originalEnd := bk.EndTime()
	newEnd := originalEnd.Add(24 * time.Hour)
	charge := decimal.RequireFromString("80.00")

	extendedAt := testNow.Add(time.Hour)
	require.NoError(t, bk.Extend(newEnd, charge, extendedAt))
	assert.Equal(t, newEnd, bk.EndTime())
	assert.True(t, bk.TotalPrice().Equal(decimal.RequireFromString("240.00")))
	assert.Equal(t, StatusConfirmed, bk.Status(), "extension must not change status")
	assert.Equal(t, extendedAt, bk.UpdatedAt())
}

func TestBooking_Extend_Rejections(t *testing.T) {
	t.Run("pending cannot be extended", func(t *testing.T) {
		bk := newTestBooking(t)
		err := bk.Extend(bk.EndTime().Add(time.Hour), decimal.RequireFromString("10"), testNow)
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Contains(t, conflictErr.Message, "pending")
	})

	t.Run("new end not after current end", func(t *testing.T) {
		bk := newTestBooking(t)
		require.NoError(t, bk.Confirm(testNow))
		originalEnd := bk.EndTime()

		err := bk.Extend(originalEnd.Add(-time.Hour), decimal.RequireFromString("10"), testNow)
		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, originalEnd, bk.EndTime(), "failed extension must leave end unchanged")
	})
}

func TestBooking_IncrementVersion(t *testing.T) {
	bk := newTestBooking(t)
	bk.IncrementVersion()
	assert.Equal(t, int64(2), bk.Version())
}
