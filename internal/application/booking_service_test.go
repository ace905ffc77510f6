package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stashspot/service-booking/internal/domain"
	bookingDomain "github.com/stashspot/service-booking/internal/domain/booking"
	"github.com/stashspot/service-booking/internal/domain/pricing"
	unitDomain "github.com/stashspot/service-booking/internal/domain/unit"
	"github.com/stashspot/service-booking/internal/platform/kafka"
)

// memBookingRepo implements BookingRepository in memory with the same
// conditional-write semantics as the real store: the overlap re-check and the
// insert happen under one lock, and updates are guarded by version and status.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return r.clone(bk), nil
}

func (r *memBookingRepo) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.BookingNumber() == number {
			return r.clone(bk), nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", number)
}

func (r *memBookingRepo) FindOverlapping(_ context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]bookingDomain.BookingRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlapping(unitID, start, end, excludeID), nil
}

func (r *memBookingRepo) overlapping(unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) []bookingDomain.BookingRef {
	var refs []bookingDomain.BookingRef
	for _, bk := range r.bookings {
		if bk.UnitID() != unitID || !bk.Status().HoldsUnit() {
			continue
		}
		if excludeID != nil && bk.ID() == *excludeID {
			continue
		}
		if bk.StartTime().Before(end) && bk.EndTime().After(start) {
			refs = append(refs, bk.Ref())
		}
	}
	return refs
}

func (r *memBookingRepo) CreateIfAvailable(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conflicts := r.overlapping(bk.UnitID(), bk.StartTime(), bk.EndTime(), nil); len(conflicts) > 0 {
		return domain.NewConflictError(fmt.Sprintf(
			"unit is already booked by %s for an overlapping interval", conflicts[0].BookingNumber))
	}
	r.bookings[bk.ID()] = r.clone(bk)
	return nil
}

func (r *memBookingRepo) ExtendIfAvailable(_ context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus, deltaStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := bk.ID()
	if conflicts := r.overlapping(bk.UnitID(), deltaStart, bk.EndTime(), &id); len(conflicts) > 0 {
		return domain.NewConflictError(fmt.Sprintf(
			"extension overlaps booking %s", conflicts[0].BookingNumber))
	}
	stored, ok := r.bookings[id]
	if !ok || stored.Version() != bk.Version()-1 || stored.Status() != expectedStatus {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.bookings[id] = r.clone(bk)
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[bk.ID()]
	if !ok || stored.Version() != bk.Version()-1 || stored.Status() != expectedStatus {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.bookings[bk.ID()] = r.clone(bk)
	return nil
}

func (r *memBookingRepo) FindByRenterID(_ context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.RenterID() == renterID {
			out = append(out, r.clone(bk))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) FindByUnitID(_ context.Context, unitID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.UnitID() == unitID {
			out = append(out, r.clone(bk))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		out = append(out, r.clone(bk))
	}
	return out, int64(len(out)), nil
}

func (r *memBookingRepo) FindExpiredPending(_ context.Context, createdBefore time.Time, limit int) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.Status() == bookingDomain.StatusPending && bk.CreatedAt().Before(createdBefore) {
			out = append(out, r.clone(bk))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

// clone rebuilds the aggregate so callers cannot mutate stored state in place.
func (r *memBookingRepo) clone(bk *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		bk.ID(), bk.BookingNumber(), bk.UnitID(), bk.RenterID(), bk.Status(),
		bk.StartTime(), bk.EndTime(),
		bk.CheckInAt(), bk.CheckOutAt(), bk.CancelledAt(), bk.ExpiredAt(),
		bk.TotalPrice(), bk.Currency(), bk.Notes(), bk.CancelReason(),
		bk.Version(), bk.CreatedAt(), bk.UpdatedAt(),
	)
}

// staleReadRepo hides one booking from availability reads, modeling a reserve
// that commits between the extension's availability check and its write. The
// write path underneath still sees everything.
type staleReadRepo struct {
	*memBookingRepo
	hidden uuid.UUID
}

func (r *staleReadRepo) FindOverlapping(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]bookingDomain.BookingRef, error) {
	refs, err := r.memBookingRepo.FindOverlapping(ctx, unitID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	visible := refs[:0]
	for _, ref := range refs {
		if ref.ID != r.hidden {
			visible = append(visible, ref)
		}
	}
	return visible, nil
}

type memUnitRepo struct {
	units map[uuid.UUID]*unitDomain.StorageUnit
}

func (r *memUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*unitDomain.StorageUnit, error) {
	u, ok := r.units[id]
	if !ok {
		return nil, domain.NewNotFoundError("StorageUnit", id.String())
	}
	return u, nil
}

func (r *memUnitRepo) ListByLocation(_ context.Context, _ uuid.UUID, _, _ int) ([]*unitDomain.StorageUnit, int64, error) {
	return nil, 0, nil
}

type memRuleRepo struct {
	rules []pricing.Rule
}

func (r *memRuleRepo) ActiveRules(_ context.Context) ([]pricing.Rule, error) {
	return r.rules, nil
}

func (r *memRuleRepo) ListAll(_ context.Context, _, _ int) ([]pricing.Rule, int64, error) {
	return r.rules, int64(len(r.rules)), nil
}

type capturedEvent struct {
	topic string
	key   string
	event kafka.CloudEvent
}

type memPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *memPublisher) PublishEvent(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *memPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

// --- Fixture ---

var svcNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	service   *BookingService
	repo      *memBookingRepo
	publisher *memPublisher
	unit      *unitDomain.StorageUnit
	renterID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	unit := &unitDomain.StorageUnit{
		ID:         uuid.New(),
		LocationID: uuid.New(),
		UnitNumber: "B-204",
		SizeClass:  unitDomain.SizeSmall,
		HourlyRate: decimal.RequireFromString("10"),
		DailyRate:  decimal.RequireFromString("160"),
		Currency:   "USD",
		Active:     true,
	}

	repo := newMemBookingRepo()
	publisher := &memPublisher{}
	resolver := bookingDomain.NewAvailabilityResolver(repo)
	calculator := pricing.NewCalculator(pricing.NewRuleEngine(), decimal.Zero)

	service := NewBookingService(
		repo,
		&memUnitRepo{units: map[uuid.UUID]*unitDomain.StorageUnit{unit.ID: unit}},
		&memRuleRepo{},
		resolver,
		calculator,
		publisher,
		zap.NewNop(),
	).WithClock(func() time.Time { return svcNow })

	return &fixture{
		service:   service,
		repo:      repo,
		publisher: publisher,
		unit:      unit,
		renterID:  uuid.New(),
	}
}

func (f *fixture) reserve(t *testing.T, start, end time.Time) *BookingDTO {
	t.Helper()
	dto, err := f.service.Reserve(context.Background(), f.renterID, ReserveRequest{
		UnitID:    f.unit.ID,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	return dto
}

// --- Tests ---

func TestBookingService_Reserve(t *testing.T) {
	f := newFixture(t)

	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(11*time.Hour))

	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "100.00", dto.TotalPrice) // 10h at $10
	assert.Equal(t, "USD", dto.Currency)
	assert.Equal(t, []string{"booking.created"}, f.publisher.types())
}

func TestBookingService_GetBookingByNumber(t *testing.T) {
	f := newFixture(t)
	created := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	dto, err := f.service.GetBookingByNumber(context.Background(), created.BookingNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, dto.ID)

	_, err = f.service.GetBookingByNumber(context.Background(), "BK-NOSUCH")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestBookingService_Reserve_Conflict(t *testing.T) {
	f := newFixture(t)
	first := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	_, err := f.service.Reserve(context.Background(), uuid.New(), ReserveRequest{
		UnitID:    f.unit.ID,
		StartTime: svcNow.Add(2 * time.Hour),
		EndTime:   svcNow.Add(6 * time.Hour),
	})
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, conflictErr.Message, first.BookingNumber)
}

func TestBookingService_Reserve_BackToBack(t *testing.T) {
	f := newFixture(t)
	f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	// [start, end) intervals: sharing a boundary is not a conflict.
	dto := f.reserve(t, svcNow.Add(5*time.Hour), svcNow.Add(9*time.Hour))
	assert.Equal(t, "pending", dto.Status)
}

func TestBookingService_Reserve_UnknownUnit(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Reserve(context.Background(), f.renterID, ReserveRequest{
		UnitID:    uuid.New(),
		StartTime: svcNow.Add(time.Hour),
		EndTime:   svcNow.Add(2 * time.Hour),
	})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestBookingService_Reserve_InactiveUnit(t *testing.T) {
	f := newFixture(t)
	f.unit.Active = false

	_, err := f.service.Reserve(context.Background(), f.renterID, ReserveRequest{
		UnitID:    f.unit.ID,
		StartTime: svcNow.Add(time.Hour),
		EndTime:   svcNow.Add(2 * time.Hour),
	})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestBookingService_ConcurrentReserve_OneWinner(t *testing.T) {
	f := newFixture(t)
	start, end := svcNow.Add(time.Hour), svcNow.Add(9*time.Hour)

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Reserve(context.Background(), uuid.New(), ReserveRequest{
				UnitID:    f.unit.ID,
				StartTime: start,
				EndTime:   end,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		if err == nil {
			created++
			continue
		}
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		conflicts++
	}
	assert.Equal(t, 1, created, "exactly one writer wins the interval")
	assert.Equal(t, writers-1, conflicts)
}

func TestBookingService_QuoteIncludesAvailability(t *testing.T) {
	f := newFixture(t)
	f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	quote, err := f.service.Quote(context.Background(), QuoteRequest{
		UnitID:    f.unit.ID,
		StartTime: svcNow.Add(2 * time.Hour),
		EndTime:   svcNow.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", quote.Total)
	assert.False(t, quote.Available)
	require.NotNil(t, quote.Conflict)
}

func TestBookingService_LifecycleViaPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(11*time.Hour))

	confirmed, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)

	// Second capture for the same booking is a state error, not a double apply.
	_, err = f.service.ConfirmBooking(ctx, dto.ID)
	var stateErr *domain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestBookingService_CheckInOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(-time.Minute), svcNow.Add(10*time.Hour))

	_, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)

	active, err := f.service.CheckIn(ctx, f.renterID, false, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", active.Status)
	require.NotNil(t, active.CheckInAt)

	done, err := f.service.CheckOut(ctx, f.renterID, false, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	assert.Equal(t,
		[]string{"booking.created", "booking.confirmed", "booking.activated", "booking.completed"},
		f.publisher.types())
}

func TestBookingService_CheckIn_WrongRenter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(-time.Minute), svcNow.Add(10*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)

	_, err = f.service.CheckIn(ctx, uuid.New(), false, dto.ID)
	var forbiddenErr *domain.ForbiddenError
	require.ErrorAs(t, err, &forbiddenErr)

	// An admin may act on any booking.
	_, err = f.service.CheckIn(ctx, uuid.New(), true, dto.ID)
	require.NoError(t, err)
}

func TestBookingService_Extend_ChargesDeltaOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(11*time.Hour)) // $100
	_, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)

	extended, err := f.service.Extend(ctx, f.renterID, false, dto.ID, ExtendRequest{
		NewEndTime: svcNow.Add(16 * time.Hour), // +5h at $10
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", extended.TotalPrice)
	assert.Equal(t, "confirmed", extended.Status)
}

func TestBookingService_Extend_ConflictLeavesEndUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)

	// A neighbor occupies the interval right behind the booking.
	f.reserve(t, svcNow.Add(6*time.Hour), svcNow.Add(10*time.Hour))

	_, err = f.service.Extend(ctx, f.renterID, false, dto.ID, ExtendRequest{
		NewEndTime: svcNow.Add(8 * time.Hour),
	})
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	current, err := f.service.GetBooking(ctx, f.renterID, false, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.EndTime, current.EndTime)
	assert.Equal(t, dto.TotalPrice, current.TotalPrice)
}

func TestBookingService_Extend_WriteTimeConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, target.ID)
	require.NoError(t, err)

	neighbor := f.reserve(t, svcNow.Add(6*time.Hour), svcNow.Add(7*time.Hour))

	// A service whose availability reads miss the neighbor: its advisory
	// pre-check passes, so only the repository's write-time re-check stands
	// between the extension and an overlap.
	stale := &staleReadRepo{memBookingRepo: f.repo, hidden: neighbor.ID}
	blind := NewBookingService(
		f.repo,
		&memUnitRepo{units: map[uuid.UUID]*unitDomain.StorageUnit{f.unit.ID: f.unit}},
		&memRuleRepo{},
		bookingDomain.NewAvailabilityResolver(stale),
		pricing.NewCalculator(pricing.NewRuleEngine(), decimal.Zero),
		f.publisher,
		zap.NewNop(),
	).WithClock(func() time.Time { return svcNow })

	_, err = blind.Extend(ctx, f.renterID, false, target.ID, ExtendRequest{
		NewEndTime: svcNow.Add(8 * time.Hour),
	})
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	// The extension never committed and the neighbor holds its slot alone.
	current, err := f.service.GetBooking(ctx, f.renterID, false, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.EndTime, current.EndTime)
	assert.Equal(t, target.TotalPrice, current.TotalPrice)

	refs, err := f.repo.FindOverlapping(ctx, f.unit.ID, svcNow.Add(6*time.Hour), svcNow.Add(7*time.Hour), nil)
	require.NoError(t, err)
	assert.Len(t, refs, 1, "no two unit-holding bookings may overlap")
}

func TestBookingService_ConcurrentExtendReserve_OneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, target.ID)
	require.NoError(t, err)

	// An extension to 8h and a reserve of [6h, 7h) fight over the same delta.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.service.Extend(ctx, f.renterID, false, target.ID, ExtendRequest{
			NewEndTime: svcNow.Add(8 * time.Hour),
		})
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := f.service.Reserve(ctx, uuid.New(), ReserveRequest{
			UnitID:    f.unit.ID,
			StartTime: svcNow.Add(6 * time.Hour),
			EndTime:   svcNow.Add(7 * time.Hour),
		})
		results <- err
	}()
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var conflictErr *domain.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		conflicts++
	}
	assert.Equal(t, 1, wins, "exactly one writer takes the delta")
	assert.Equal(t, 1, conflicts)

	refs, err := f.repo.FindOverlapping(ctx, f.unit.ID, svcNow.Add(6*time.Hour), svcNow.Add(7*time.Hour), nil)
	require.NoError(t, err)
	assert.Len(t, refs, 1, "no two unit-holding bookings may overlap")
}

func TestBookingService_Extend_PendingRejected(t *testing.T) {
	f := newFixture(t)
	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	_, err := f.service.Extend(context.Background(), f.renterID, false, dto.ID, ExtendRequest{
		NewEndTime: svcNow.Add(8 * time.Hour),
	})
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestBookingService_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))

	cancelled, err := f.service.Cancel(ctx, f.renterID, false, dto.ID, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancelReason)

	// The interval is released immediately.
	other := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))
	assert.Equal(t, "pending", other.Status)
}

func TestBookingService_ExpirePendingBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staleA := f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(5*time.Hour))
	staleB := f.reserve(t, svcNow.Add(6*time.Hour), svcNow.Add(9*time.Hour))
	confirmed := f.reserve(t, svcNow.Add(10*time.Hour), svcNow.Add(12*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, confirmed.ID)
	require.NoError(t, err)

	// Move the clock past the hold TTL: pending holds created before the
	// cutoff expire, anything already confirmed is untouched.
	f.service.WithClock(func() time.Time { return svcNow.Add(20 * time.Minute) })

	count, err := f.service.ExpirePendingBookings(ctx, 15*time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := f.service.GetBooking(ctx, f.renterID, false, staleA.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", got.Status)
	require.NotNil(t, got.ExpiredAt)

	got, err = f.service.GetBooking(ctx, f.renterID, false, staleB.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", got.Status)

	got, err = f.service.GetBooking(ctx, f.renterID, false, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", got.Status, "confirmed bookings never expire")
}

func TestBookingService_GetBookingStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.reserve(t, svcNow.Add(time.Hour), svcNow.Add(2*time.Hour))
	dto := f.reserve(t, svcNow.Add(3*time.Hour), svcNow.Add(4*time.Hour))
	_, err := f.service.ConfirmBooking(ctx, dto.ID)
	require.NoError(t, err)

	stats, err := f.service.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus["pending"])
	assert.Equal(t, int64(1), stats.ByStatus["confirmed"])
}
