// Package worker holds the service's background processes: the payment
// event consumer and the hold-expiry sweeper.
package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/stashspot/service-booking/internal/application"
	"github.com/stashspot/service-booking/internal/domain"
	"github.com/stashspot/service-booking/internal/events"
	"github.com/stashspot/service-booking/internal/platform/kafka"
)

// PaymentConsumer reacts to payment outcomes: a captured payment confirms the
// pending booking, a failed payment cancels it.
type PaymentConsumer struct {
	consumer *kafka.Consumer
	service  *application.BookingService
	logger   *zap.Logger
}

// NewPaymentConsumer creates a PaymentConsumer reading payment.events.
func NewPaymentConsumer(brokers []string, groupID string, service *application.BookingService, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger),
		service:  service,
		logger:   logger,
	}
}

// Start consumes payment events until the context is cancelled.
func (c *PaymentConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handle)
}

// Close closes the underlying consumer.
func (c *PaymentConsumer) Close() error {
	return c.consumer.Close()
}

// handle processes one payment event. Malformed or irrelevant messages are
// logged and committed; redelivering them can never succeed.
func (c *PaymentConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Warn("skipping malformed payment event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}

	var payload events.PaymentEventPayload
	if err := event.ParseData(&payload); err != nil {
		c.logger.Warn("skipping payment event with malformed payload",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return nil
	}
	if payload.BookingID == uuid.Nil {
		c.logger.Warn("skipping payment event without booking id",
			zap.String("type", event.Type),
		)
		return nil
	}

	switch event.Type {
	case events.EventPaymentCaptured:
		_, err = c.service.ConfirmBooking(ctx, payload.BookingID)
	case events.EventPaymentFailed:
		reason := payload.Reason
		if reason == "" {
			reason = "payment failed"
		}
		_, err = c.service.CancelByPaymentFailure(ctx, payload.BookingID, reason)
	default:
		return nil
	}

	if err != nil {
		// A booking already past pending (or long gone) cannot be acted on;
		// redelivery would loop forever, so commit and move on.
		var stateErr *domain.InvalidStateError
		var notFound *domain.NotFoundError
		if errors.As(err, &stateErr) || errors.As(err, &notFound) {
			c.logger.Warn("payment event not applicable to booking",
				zap.String("type", event.Type),
				zap.String("booking_id", payload.BookingID.String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}
	return nil
}
