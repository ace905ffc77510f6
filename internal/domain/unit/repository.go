package unit

import (
	"context"

	"github.com/google/uuid"
)

// UnitRepository defines the read contract for storage units.
type UnitRepository interface {
	// FindByID retrieves a unit by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*StorageUnit, error)

	// ListByLocation retrieves units at a location with pagination.
	ListByLocation(ctx context.Context, locationID uuid.UUID, page, limit int) ([]*StorageUnit, int64, error)
}
