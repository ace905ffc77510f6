// Package events defines the Kafka topics, event types and payloads the
// booking service produces and consumes.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	// TopicBookingEvents carries booking lifecycle events this service produces.
	TopicBookingEvents = "booking.events"

	// TopicPaymentEvents carries payment outcomes this service consumes.
	TopicPaymentEvents = "payment.events"
)

// Booking lifecycle event types, published with a CloudEvents envelope.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingActivated = "booking.activated"
	EventBookingCompleted = "booking.completed"
	EventBookingExtended  = "booking.extended"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
)

// Payment event types consumed from the payment service.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// BookingEventPayload is the data section of every booking lifecycle event.
type BookingEventPayload struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UnitID        uuid.UUID `json:"unit_id"`
	RenterID      uuid.UUID `json:"renter_id"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalPrice    string    `json:"total_price"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentEventPayload is the data section of payment outcome events.
type PaymentEventPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BookingID uuid.UUID `json:"booking_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason,omitempty"`
}
