package pricing

import "context"

// RuleRepository defines the read contract for pricing rules.
type RuleRepository interface {
	// ActiveRules returns a snapshot of all rules flagged active.
	// Validity-window filtering happens in the engine, per calculation.
	ActiveRules(ctx context.Context) ([]Rule, error)

	// ListAll retrieves all rules with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]Rule, int64, error)
}
