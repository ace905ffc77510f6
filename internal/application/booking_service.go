// Package application orchestrates the booking use cases over the domain
// model, the repositories and the event bus.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stashspot/service-booking/internal/domain"
	bookingDomain "github.com/stashspot/service-booking/internal/domain/booking"
	"github.com/stashspot/service-booking/internal/domain/pricing"
	unitDomain "github.com/stashspot/service-booking/internal/domain/unit"
	"github.com/stashspot/service-booking/internal/events"
	"github.com/stashspot/service-booking/internal/platform/kafka"
)

const eventSource = "stashspot/service-booking"

// EventPublisher is the slice of the Kafka producer the service needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// BookingService implements the booking use cases: quoting, reserving,
// lifecycle transitions, hold expiry and the admin read paths.
type BookingService struct {
	bookings   bookingDomain.BookingRepository
	units      unitDomain.UnitRepository
	rules      pricing.RuleRepository
	resolver   *bookingDomain.AvailabilityResolver
	calculator *pricing.Calculator
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewBookingService creates a BookingService.
func NewBookingService(
	bookings bookingDomain.BookingRepository,
	units unitDomain.UnitRepository,
	rules pricing.RuleRepository,
	resolver *bookingDomain.AvailabilityResolver,
	calculator *pricing.Calculator,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		units:      units,
		rules:      rules,
		resolver:   resolver,
		calculator: calculator,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Quote prices the requested interval and reports whether it is currently
// free. The quote is advisory; availability can change before Reserve.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (*QuoteDTO, error) {
	unit, err := s.loadBookableUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	quote, err := s.calculator.Calculate(unit, req.StartTime, req.EndTime, rules, req.PromoCode)
	if err != nil {
		return nil, err
	}

	availability, err := s.resolver.CheckAvailable(ctx, req.UnitID, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, err
	}

	return toQuoteDTO(quote, availability), nil
}

// CheckAvailability reports whether [start, end) on the unit is free.
func (s *BookingService) CheckAvailability(ctx context.Context, unitID uuid.UUID, start, end time.Time) (bookingDomain.Availability, error) {
	if _, err := s.loadBookableUnit(ctx, unitID); err != nil {
		return bookingDomain.Availability{}, err
	}
	return s.resolver.CheckAvailable(ctx, unitID, start, end, nil)
}

// Reserve creates a pending booking hold on the unit.
//
// The availability pre-check here only produces a friendly early failure; the
// invariant is enforced by the repository's conditional insert, so two
// concurrent reservations on the same interval yield exactly one booking.
func (s *BookingService) Reserve(ctx context.Context, renterID uuid.UUID, req ReserveRequest) (*BookingDTO, error) {
	unit, err := s.loadBookableUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	availability, err := s.resolver.CheckAvailable(ctx, req.UnitID, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if !availability.Available {
		return nil, domain.NewConflictError(fmt.Sprintf(
			"unit is already booked by %s for an overlapping interval",
			availability.Conflict.BookingNumber))
	}

	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.calculator.Calculate(unit, req.StartTime, req.EndTime, rules, req.PromoCode)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		req.UnitID, renterID,
		req.StartTime, req.EndTime,
		quote.Total, unit.Currency,
		req.Notes, s.now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.CreateIfAvailable(ctx, bk); err != nil {
		return nil, err
	}

	s.logger.Info("booking reserved",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("unit_id", bk.UnitID().String()),
		zap.String("total", bk.TotalPrice().StringFixed(2)),
	)
	s.publishLifecycleEvent(ctx, events.EventBookingCreated, bk)

	return toBookingDTO(bk), nil
}

// ConfirmBooking moves a pending booking to confirmed after payment capture.
// Driven by the payment consumer, not by a user-facing route.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, events.EventBookingConfirmed, func(bk *bookingDomain.Booking) error {
		return bk.Confirm(s.now())
	})
}

// CheckIn activates a confirmed booking when the renter arrives.
func (s *BookingService) CheckIn(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.ownedTransition(ctx, actorID, isAdmin, bookingID, events.EventBookingActivated, func(bk *bookingDomain.Booking) error {
		return bk.CheckIn(s.now())
	})
}

// CheckOut completes an active booking when the renter vacates the unit.
func (s *BookingService) CheckOut(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*BookingDTO, error) {
	return s.ownedTransition(ctx, actorID, isAdmin, bookingID, events.EventBookingCompleted, func(bk *bookingDomain.Booking) error {
		return bk.CheckOut(s.now())
	})
}

// Extend pushes a confirmed or active booking's end time out, charging only
// for the added interval [current end, new end) at current rates.
//
// The availability read here is advisory, like the one before Reserve; the
// repository re-checks the delta inside the write transaction, so a reserve
// racing into the delta loses to (or beats) the extension, never overlaps it.
func (s *BookingService) Extend(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID, req ExtendRequest) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(bk, actorID, isAdmin); err != nil {
		return nil, err
	}
	if !req.NewEndTime.After(bk.EndTime()) {
		return nil, domain.NewFieldValidationError("new_end_time", "new end must be after the current end")
	}

	id := bk.ID()
	availability, err := s.resolver.CheckAvailable(ctx, bk.UnitID(), bk.EndTime(), req.NewEndTime, &id)
	if err != nil {
		return nil, err
	}
	if !availability.Available {
		return nil, domain.NewConflictError(fmt.Sprintf(
			"extension overlaps booking %s", availability.Conflict.BookingNumber))
	}

	unit, err := s.units.FindByID(ctx, bk.UnitID())
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	deltaQuote, err := s.calculator.Calculate(unit, bk.EndTime(), req.NewEndTime, rules, req.PromoCode)
	if err != nil {
		return nil, err
	}

	prevStatus := bk.Status()
	deltaStart := bk.EndTime()
	if err := bk.Extend(req.NewEndTime, deltaQuote.Total, s.now()); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.bookings.ExtendIfAvailable(ctx, bk, prevStatus, deltaStart); err != nil {
		return nil, err
	}

	s.logger.Info("booking extended",
		zap.String("booking_id", bk.ID().String()),
		zap.Time("new_end", bk.EndTime()),
		zap.String("additional_charge", deltaQuote.Total.StringFixed(2)),
	)
	s.publishLifecycleEvent(ctx, events.EventBookingExtended, bk)

	return toBookingDTO(bk), nil
}

// Cancel cancels a booking the caller owns (or any booking, for admins).
func (s *BookingService) Cancel(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	return s.ownedTransition(ctx, actorID, isAdmin, bookingID, events.EventBookingCancelled, func(bk *bookingDomain.Booking) error {
		return bk.Cancel(reason, s.now())
	})
}

// CancelByPaymentFailure cancels a pending booking when payment fails.
// Driven by the payment consumer.
func (s *BookingService) CancelByPaymentFailure(ctx context.Context, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	return s.transition(ctx, bookingID, events.EventBookingCancelled, func(bk *bookingDomain.Booking) error {
		return bk.Cancel(reason, s.now())
	})
}

// ExpirePendingBookings expires pending holds created before the cutoff,
// releasing their intervals. Returns the number of bookings expired.
//
// Each booking is swept independently; a conflict on one (a concurrent
// confirm winning the race) skips it without aborting the batch.
func (s *BookingService) ExpirePendingBookings(ctx context.Context, holdTTL time.Duration, batchSize int) (int, error) {
	cutoff := s.now().Add(-holdTTL)
	stale, err := s.bookings.FindExpiredPending(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, bk := range stale {
		prevStatus := bk.Status()
		if err := bk.Expire(s.now()); err != nil {
			continue
		}
		bk.IncrementVersion()
		if err := s.bookings.Update(ctx, bk, prevStatus); err != nil {
			s.logger.Warn("skipping hold expiry, booking changed concurrently",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
			continue
		}
		s.publishLifecycleEvent(ctx, events.EventBookingExpired, bk)
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired stale booking holds", zap.Int("count", expired))
	}
	return expired, nil
}

// GetBooking retrieves one booking, enforcing ownership for non-admins.
func (s *BookingService) GetBooking(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(bk, actorID, isAdmin); err != nil {
		return nil, err
	}
	return toBookingDTO(bk), nil
}

// GetBookingByNumber retrieves one booking by its human-readable number (admin).
func (s *BookingService) GetBookingByNumber(ctx context.Context, number string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return toBookingDTO(bk), nil
}

// GetRenterBookings lists the caller's bookings with pagination.
func (s *BookingService) GetRenterBookings(ctx context.Context, renterID uuid.UUID, page, limit int) (*domain.PaginatedResult[*BookingDTO], error) {
	page, limit = normalizePage(page, limit)
	bookings, total, err := s.bookings.FindByRenterID(ctx, renterID, page, limit)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit), nil
}

// ListAllBookings lists every booking with pagination (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (*domain.PaginatedResult[*BookingDTO], error) {
	page, limit = normalizePage(page, limit)
	bookings, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit), nil
}

// GetUnitBookings lists bookings on one unit with pagination (admin).
func (s *BookingService) GetUnitBookings(ctx context.Context, unitID uuid.UUID, page, limit int) (*domain.PaginatedResult[*BookingDTO], error) {
	page, limit = normalizePage(page, limit)
	bookings, total, err := s.bookings.FindByUnitID(ctx, unitID, page, limit)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit), nil
}

// GetBookingStats returns per-status booking counts (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{Total: total, ByStatus: counts}, nil
}

// ListPricingRules lists pricing rules with pagination (admin).
func (s *BookingService) ListPricingRules(ctx context.Context, page, limit int) (*domain.PaginatedResult[RuleDTO], error) {
	page, limit = normalizePage(page, limit)
	rules, total, err := s.rules.ListAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]RuleDTO, len(rules))
	for i, r := range rules {
		dtos[i] = toRuleDTO(r)
	}
	return domain.NewPaginatedResult(dtos, total, page, limit), nil
}

// --- Internals ---

func (s *BookingService) loadBookableUnit(ctx context.Context, unitID uuid.UUID) (*unitDomain.StorageUnit, error) {
	unit, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !unit.Active {
		return nil, domain.NewNotFoundError("StorageUnit", unitID.String())
	}
	return unit, nil
}

func (s *BookingService) authorize(bk *bookingDomain.Booking, actorID uuid.UUID, isAdmin bool) error {
	if isAdmin || bk.RenterID() == actorID {
		return nil
	}
	return domain.NewForbiddenError("booking belongs to another renter")
}

func (s *BookingService) transition(ctx context.Context, bookingID uuid.UUID, eventType string, apply func(*bookingDomain.Booking) error) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, bk, eventType, apply)
}

func (s *BookingService) ownedTransition(ctx context.Context, actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID, eventType string, apply func(*bookingDomain.Booking) error) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(bk, actorID, isAdmin); err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, bk, eventType, apply)
}

func (s *BookingService) applyTransition(ctx context.Context, bk *bookingDomain.Booking, eventType string, apply func(*bookingDomain.Booking) error) (*BookingDTO, error) {
	prevStatus := bk.Status()
	if err := apply(bk); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.bookings.Update(ctx, bk, prevStatus); err != nil {
		return nil, err
	}

	s.logger.Info("booking transitioned",
		zap.String("booking_id", bk.ID().String()),
		zap.String("from", string(prevStatus)),
		zap.String("to", string(bk.Status())),
	)
	s.publishLifecycleEvent(ctx, eventType, bk)

	return toBookingDTO(bk), nil
}

// publishLifecycleEvent emits the event best-effort. The state change is
// already durable; a bus outage must not fail the request.
func (s *BookingService) publishLifecycleEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	if s.publisher == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UnitID:        bk.UnitID(),
		RenterID:      bk.RenterID(),
		Status:        string(bk.Status()),
		StartTime:     bk.StartTime(),
		EndTime:       bk.EndTime(),
		TotalPrice:    bk.TotalPrice().StringFixed(2),
		Currency:      bk.Currency(),
		OccurredAt:    s.now().UTC(),
	}
	event, err := kafka.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		s.logger.Error("failed to build lifecycle event", zap.Error(err))
		return
	}
	if err := s.publisher.PublishEvent(ctx, events.TopicBookingEvents, bk.ID().String(), event); err != nil {
		s.logger.Error("failed to publish lifecycle event",
			zap.String("type", eventType),
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
