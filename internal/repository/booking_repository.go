package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stashspot/service-booking/internal/domain"
	bookingDomain "github.com/stashspot/service-booking/internal/domain/booking"
)

// queryTimeout bounds every booking-store call so nothing blocks indefinitely.
const queryTimeout = 5 * time.Second

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber string          `gorm:"uniqueIndex;not null;size:20"`
	UnitID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_bookings_unit_interval,priority:1"`
	RenterID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status        string          `gorm:"not null;size:20;index"`
	StartTime     time.Time       `gorm:"not null;index:idx_bookings_unit_interval,priority:2"`
	EndTime       time.Time       `gorm:"not null"`
	CheckInAt     *time.Time      `gorm:""`
	CheckOutAt    *time.Time      `gorm:""`
	CancelledAt   *time.Time      `gorm:""`
	ExpiredAt     *time.Time      `gorm:""`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency      string          `gorm:"not null;size:3;default:'USD'"`
	Notes         string          `gorm:"size:1000"`
	CancelReason  string          `gorm:"size:500"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"not null;index"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, storeErr("find booking by id", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, storeErr("find booking by number", err)
	}
	return toDomainBooking(&model)
}

// FindOverlapping returns references to unit-holding bookings intersecting
// the half-open interval [start, end).
func (r *GormBookingRepository) FindOverlapping(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]bookingDomain.BookingRef, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var models []BookingModel
	q := overlapQuery(r.db.WithContext(ctx), unitID, start, end, excludeID)
	if err := q.Order("start_time ASC").Find(&models).Error; err != nil {
		return nil, storeErr("find overlapping bookings", err)
	}
	return toBookingRefs(models)
}

// CreateIfAvailable persists a new booking only if no overlapping unit-holding
// booking exists at write time.
//
// The overlap re-check and the insert run in one serializable transaction,
// with candidate rows locked FOR UPDATE; a concurrent writer that wins the
// interval surfaces as a ConflictError, never as a silent overwrite.
func (r *GormBookingRepository) CreateIfAvailable(ctx context.Context, bk *bookingDomain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	model := toBookingModel(bk)
	start, end := bk.Interval()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing BookingModel
		err := overlapQuery(tx, bk.UnitID(), start, end, nil).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&existing).Error

		if err == nil {
			return domain.NewConflictError(fmt.Sprintf(
				"unit is already booked by %s for an overlapping interval", existing.BookingNumber))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(model).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return err
		}
		if isSerializationFailure(err) {
			return domain.NewConflictError("unit was booked concurrently, availability must be re-checked")
		}
		return storeErr("create booking", err)
	}
	return nil
}

// ExtendIfAvailable persists an extension only if the added interval
// [deltaStart, booking end) is still free of other unit-holding bookings at
// write time.
//
// The delta overlap re-check and the guarded update run in one serializable
// transaction with candidate rows locked FOR UPDATE, mirroring
// CreateIfAvailable: a reserve landing inside the delta between the caller's
// availability read and this write surfaces as a ConflictError.
func (r *GormBookingRepository) ExtendIfAvailable(ctx context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus, deltaStart time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	model := toBookingModel(bk)
	id := bk.ID()
	expectedVersion := bk.Version() - 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing BookingModel
		err := overlapQuery(tx, bk.UnitID(), deltaStart, bk.EndTime(), &id).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&existing).Error

		if err == nil {
			return domain.NewConflictError(fmt.Sprintf(
				"extension overlaps booking %s", existing.BookingNumber))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		result := tx.Model(&BookingModel{}).
			Where("id = ? AND version = ? AND status = ?", model.ID, expectedVersion, string(expectedStatus)).
			Updates(map[string]interface{}{
				"end_time":    model.EndTime,
				"total_price": model.TotalPrice,
				"version":     model.Version,
				"updated_at":  model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewConflictError("booking was modified by another transaction")
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return err
		}
		if isSerializationFailure(err) {
			return domain.NewConflictError("unit was booked concurrently, availability must be re-checked")
		}
		return storeErr("extend booking", err)
	}
	return nil
}

// Update persists changes to an existing booking, guarded by both the
// previous version and the expected prior status. It deliberately never
// touches the interval columns; interval changes go through ExtendIfAvailable
// so they cannot skip the overlap re-check.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.BookingStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	model := toBookingModel(bk)

	// IncrementVersion was called before Update, so the stored row must still
	// carry version-1 and the status the transition started from.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ? AND status = ?", model.ID, expectedVersion, string(expectedStatus)).
		Updates(map[string]interface{}{
			"status":        model.Status,
			"check_in_at":   model.CheckInAt,
			"check_out_at":  model.CheckOutAt,
			"cancelled_at":  model.CancelledAt,
			"expired_at":    model.ExpiredAt,
			"total_price":   model.TotalPrice,
			"notes":         model.Notes,
			"cancel_reason": model.CancelReason,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return storeErr("update booking", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// FindByRenterID retrieves bookings for a specific renter with pagination.
func (r *GormBookingRepository) FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "renter_id = ?", renterID, page, limit)
}

// FindByUnitID retrieves bookings on a specific unit with pagination (admin).
func (r *GormBookingRepository) FindByUnitID(ctx context.Context, unitID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "unit_id = ?", unitID, page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "", nil, page, limit)
}

// FindExpiredPending returns pending bookings created before the cutoff,
// oldest first, capped at limit.
func (r *GormBookingRepository) FindExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*bookingDomain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(bookingDomain.StatusPending), createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, storeErr("find expired pending bookings", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, storeErr("count bookings by status", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Helpers ---

func (r *GormBookingRepository) findPage(ctx context.Context, cond string, arg interface{}, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&BookingModel{})
	if cond != "" {
		q = q.Where(cond, arg)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count bookings", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, storeErr("list bookings", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

// overlapQuery selects unit-holding bookings intersecting [start, end) using
// the half-open overlap test: existing.start < end AND existing.end > start.
func overlapQuery(tx *gorm.DB, unitID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) *gorm.DB {
	statuses := make([]string, 0, 3)
	for _, s := range bookingDomain.ActiveStatuses() {
		statuses = append(statuses, string(s))
	}

	q := tx.Model(&BookingModel{}).
		Where("unit_id = ? AND status IN ?", unitID, statuses).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	return q
}

// storeErr classifies infrastructure failures as retryable UnavailableError
// and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewUnavailableError(op, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return domain.NewUnavailableError(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// isSerializationFailure detects PostgreSQL serialization aborts (SQLSTATE 40001).
func isSerializationFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "could not serialize access")
}

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UnitID:        bk.UnitID(),
		RenterID:      bk.RenterID(),
		Status:        string(bk.Status()),
		StartTime:     bk.StartTime(),
		EndTime:       bk.EndTime(),
		CheckInAt:     bk.CheckInAt(),
		CheckOutAt:    bk.CheckOutAt(),
		CancelledAt:   bk.CancelledAt(),
		ExpiredAt:     bk.ExpiredAt(),
		TotalPrice:    bk.TotalPrice(),
		Currency:      bk.Currency(),
		Notes:         bk.Notes(),
		CancelReason:  bk.CancelReason(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.UnitID,
		m.RenterID,
		status,
		m.StartTime,
		m.EndTime,
		m.CheckInAt,
		m.CheckOutAt,
		m.CancelledAt,
		m.ExpiredAt,
		m.TotalPrice,
		m.Currency,
		m.Notes,
		m.CancelReason,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toBookingRefs(models []BookingModel) ([]bookingDomain.BookingRef, error) {
	refs := make([]bookingDomain.BookingRef, len(models))
	for i, m := range models {
		status, err := bookingDomain.ParseBookingStatus(m.Status)
		if err != nil {
			return nil, err
		}
		refs[i] = bookingDomain.BookingRef{
			ID:            m.ID,
			BookingNumber: m.BookingNumber,
			Status:        status,
			StartTime:     m.StartTime,
			EndTime:       m.EndTime,
		}
	}
	return refs, nil
}
