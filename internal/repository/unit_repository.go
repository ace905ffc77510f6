package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stashspot/service-booking/internal/domain"
	unitDomain "github.com/stashspot/service-booking/internal/domain/unit"
)

// UnitModel is the GORM model for the storage_units read table.
type UnitModel struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	LocationID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	UnitNumber  string           `gorm:"not null;size:20"`
	SizeClass   string           `gorm:"not null;size:10"`
	HourlyRate  decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	DailyRate   decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	MonthlyRate *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency    string           `gorm:"not null;size:3;default:'USD'"`
	Active      bool             `gorm:"not null;default:true"`
	CreatedAt   time.Time        `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (UnitModel) TableName() string {
	return "storage_units"
}

// GormUnitRepository is the GORM-based implementation of UnitRepository.
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository.
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID retrieves a unit by its unique identifier.
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*unitDomain.StorageUnit, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var model UnitModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("StorageUnit", id.String())
		}
		return nil, storeErr("find unit by id", err)
	}
	return toDomainUnit(&model), nil
}

// ListByLocation retrieves units at a location with pagination.
func (r *GormUnitRepository) ListByLocation(ctx context.Context, locationID uuid.UUID, page, limit int) ([]*unitDomain.StorageUnit, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&UnitModel{}).Where("location_id = ?", locationID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count units", err)
	}

	var models []UnitModel
	offset := (page - 1) * limit
	if err := q.Order("unit_number ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, storeErr("list units", err)
	}

	units := make([]*unitDomain.StorageUnit, len(models))
	for i := range models {
		units[i] = toDomainUnit(&models[i])
	}
	return units, total, nil
}

func toDomainUnit(m *UnitModel) *unitDomain.StorageUnit {
	return &unitDomain.StorageUnit{
		ID:          m.ID,
		LocationID:  m.LocationID,
		UnitNumber:  m.UnitNumber,
		SizeClass:   unitDomain.SizeClass(m.SizeClass),
		HourlyRate:  m.HourlyRate,
		DailyRate:   m.DailyRate,
		MonthlyRate: m.MonthlyRate,
		Currency:    m.Currency,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}
