package unit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SizeClass buckets units by floor area for catalog display.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
	SizeXLarge SizeClass = "xlarge"
)

// IsValid returns true if the size class is recognized.
func (s SizeClass) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeXLarge:
		return true
	}
	return false
}

// StorageUnit is the read model of a rentable unit. Catalog management lives
// in the listing service; bookings only ever read this, one immutable snapshot
// per call.
type StorageUnit struct {
	ID          uuid.UUID
	LocationID  uuid.UUID
	UnitNumber  string
	SizeClass   SizeClass
	HourlyRate  decimal.Decimal
	DailyRate   decimal.Decimal
	MonthlyRate *decimal.Decimal
	Currency    string
	Active      bool
	CreatedAt   time.Time
}

// HasMonthlyRate reports whether the unit offers a monthly tariff.
func (u *StorageUnit) HasMonthlyRate() bool {
	return u.MonthlyRate != nil && u.MonthlyRate.IsPositive()
}
