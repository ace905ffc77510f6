package application

import (
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/stashspot/service-booking/internal/domain/booking"
	"github.com/stashspot/service-booking/internal/domain/pricing"
)

// QuoteRequest asks for a price on a proposed interval.
type QuoteRequest struct {
	UnitID    uuid.UUID `json:"unit_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	PromoCode string    `json:"promo_code"`
}

// ReserveRequest creates a pending booking hold.
type ReserveRequest struct {
	UnitID    uuid.UUID `json:"unit_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	PromoCode string    `json:"promo_code"`
	Notes     string    `json:"notes"`
}

// ExtendRequest pushes a booking's end time out.
type ExtendRequest struct {
	NewEndTime time.Time `json:"new_end_time" binding:"required"`
	PromoCode  string    `json:"promo_code"`
}

// CancelRequest carries the renter's cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AdjustmentDTO is one rule application in a quote breakdown.
type AdjustmentDTO struct {
	RuleID     uuid.UUID `json:"rule_id"`
	RuleName   string    `json:"rule_name"`
	Type       string    `json:"type"`
	Multiplier string    `json:"multiplier"`
	Amount     string    `json:"amount"`
	Percent    string    `json:"percent"`
}

// QuoteDTO is the API representation of a price quote. Money fields are
// decimal strings; only Total is rounded.
type QuoteDTO struct {
	UnitID        uuid.UUID                 `json:"unit_id"`
	StartTime     time.Time                 `json:"start_time"`
	EndTime       time.Time                 `json:"end_time"`
	DurationHours string                    `json:"duration_hours"`
	DurationType  string                    `json:"duration_type"`
	BasePrice     string                    `json:"base_price"`
	Adjustments   []AdjustmentDTO           `json:"adjustments"`
	Subtotal      string                    `json:"subtotal"`
	Tax           string                    `json:"tax"`
	Total         string                    `json:"total"`
	Currency      string                    `json:"currency"`
	Available     bool                      `json:"available"`
	Conflict      *bookingDomain.BookingRef `json:"conflict,omitempty"`
}

// BookingDTO is the API representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID  `json:"id"`
	BookingNumber string     `json:"booking_number"`
	UnitID        uuid.UUID  `json:"unit_id"`
	RenterID      uuid.UUID  `json:"renter_id"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	CheckInAt     *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time `json:"check_out_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt     *time.Time `json:"expired_at,omitempty"`
	TotalPrice    string     `json:"total_price"`
	Currency      string     `json:"currency"`
	Notes         string     `json:"notes,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RuleDTO is the API representation of a pricing rule (admin).
type RuleDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Multiplier string     `json:"multiplier"`
	Active     bool       `json:"active"`
	Priority   int        `json:"priority"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BookingStatsDTO is the per-status booking count breakdown (admin).
type BookingStatsDTO struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

func toBookingDTO(b *bookingDomain.Booking) *BookingDTO {
	return &BookingDTO{
		ID:            b.ID(),
		BookingNumber: b.BookingNumber(),
		UnitID:        b.UnitID(),
		RenterID:      b.RenterID(),
		Status:        string(b.Status()),
		StartTime:     b.StartTime(),
		EndTime:       b.EndTime(),
		CheckInAt:     b.CheckInAt(),
		CheckOutAt:    b.CheckOutAt(),
		CancelledAt:   b.CancelledAt(),
		ExpiredAt:     b.ExpiredAt(),
		TotalPrice:    b.TotalPrice().StringFixed(2),
		Currency:      b.Currency(),
		Notes:         b.Notes(),
		CancelReason:  b.CancelReason(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []*BookingDTO {
	dtos := make([]*BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	return dtos
}

func toQuoteDTO(q *pricing.Quote, availability bookingDomain.Availability) *QuoteDTO {
	adjustments := make([]AdjustmentDTO, len(q.Adjustments))
	for i, a := range q.Adjustments {
		adjustments[i] = AdjustmentDTO{
			RuleID:     a.RuleID,
			RuleName:   a.RuleName,
			Type:       string(a.Type),
			Multiplier: a.Multiplier.String(),
			Amount:     a.Amount.StringFixed(2),
			Percent:    a.Percent.StringFixed(2),
		}
	}
	return &QuoteDTO{
		UnitID:        q.UnitID,
		StartTime:     q.Start,
		EndTime:       q.End,
		DurationHours: q.DurationHours.String(),
		DurationType:  string(q.DurationType),
		BasePrice:     q.BasePrice.StringFixed(2),
		Adjustments:   adjustments,
		Subtotal:      q.Subtotal.String(),
		Tax:           q.Tax.String(),
		Total:         q.Total.StringFixed(2),
		Currency:      q.Currency,
		Available:     availability.Available,
		Conflict:      availability.Conflict,
	}
}

func toRuleDTO(r pricing.Rule) RuleDTO {
	return RuleDTO{
		ID:         r.ID,
		Name:       r.Name,
		Type:       string(r.Type),
		Multiplier: r.Multiplier.String(),
		Active:     r.Active,
		Priority:   r.Priority,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		CreatedAt:  r.CreatedAt,
	}
}
