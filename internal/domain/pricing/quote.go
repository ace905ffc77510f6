package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DurationType is the billing bucket a quote was priced in.
type DurationType string

const (
	DurationHourly  DurationType = "hourly"
	DurationDaily   DurationType = "daily"
	DurationMonthly DurationType = "monthly"
)

// AdjustmentType classifies a rule application by its direction.
type AdjustmentType string

const (
	AdjustmentDiscount  AdjustmentType = "discount"
	AdjustmentSurcharge AdjustmentType = "surcharge"
)

// Adjustment records one rule application against the running subtotal.
// Amount and Percent are signed deltas versus the pre-adjustment subtotal.
type Adjustment struct {
	RuleID     uuid.UUID       `json:"rule_id"`
	RuleName   string          `json:"rule_name"`
	Type       AdjustmentType  `json:"type"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Amount     decimal.Decimal `json:"amount"`
	Percent    decimal.Decimal `json:"percent"`
}

// Quote is the priced breakdown for a proposed interval on a unit.
// All intermediate values keep full precision; only Total is rounded.
type Quote struct {
	UnitID        uuid.UUID       `json:"unit_id"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	DurationHours decimal.Decimal `json:"duration_hours"`
	DurationType  DurationType    `json:"duration_type"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Adjustments   []Adjustment    `json:"adjustments"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
}
