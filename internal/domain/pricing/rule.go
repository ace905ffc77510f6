package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType tags what a pricing rule matches against.
type RuleType string

const (
	RuleTypeSeasonal    RuleType = "seasonal"
	RuleTypeVolume      RuleType = "volume"
	RuleTypePromotional RuleType = "promotional"
)

// IsValid returns true if the rule type is recognized.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeSeasonal, RuleTypeVolume, RuleTypePromotional:
		return true
	}
	return false
}

// MatchContext carries the booking request attributes a condition can match on.
type MatchContext struct {
	Start         time.Time
	End           time.Time
	DurationHours decimal.Decimal
	PromoCode     string
}

// Condition is the matching payload of a pricing rule. One concrete type per
// RuleType, so matching stays exhaustive and statically checked.
type Condition interface {
	Type() RuleType
	Matches(mc MatchContext) bool
}

// SeasonalCondition matches bookings whose start falls in one of the listed months.
type SeasonalCondition struct {
	Months []time.Month `json:"months"`
}

// Type returns RuleTypeSeasonal.
func (c SeasonalCondition) Type() RuleType { return RuleTypeSeasonal }

// Matches reports whether the booking start month is in scope.
func (c SeasonalCondition) Matches(mc MatchContext) bool {
	for _, m := range c.Months {
		if mc.Start.UTC().Month() == m {
			return true
		}
	}
	return false
}

// VolumeCondition matches bookings at or above a minimum duration.
type VolumeCondition struct {
	MinHours float64 `json:"min_hours"`
}

// Type returns RuleTypeVolume.
func (c VolumeCondition) Type() RuleType { return RuleTypeVolume }

// Matches reports whether the booking duration reaches the threshold.
func (c VolumeCondition) Matches(mc MatchContext) bool {
	return mc.DurationHours.GreaterThanOrEqual(decimal.NewFromFloat(c.MinHours))
}

// PromotionalCondition matches when the caller supplied the rule's promo code.
type PromotionalCondition struct {
	Code string `json:"code"`
}

// Type returns RuleTypePromotional.
func (c PromotionalCondition) Type() RuleType { return RuleTypePromotional }

// Matches compares promo codes case-insensitively.
func (c PromotionalCondition) Matches(mc MatchContext) bool {
	return mc.PromoCode != "" && strings.EqualFold(mc.PromoCode, c.Code)
}

// DecodeCondition rebuilds a typed condition from its persisted JSON payload.
func DecodeCondition(ruleType RuleType, payload json.RawMessage) (Condition, error) {
	switch ruleType {
	case RuleTypeSeasonal:
		var c SeasonalCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("failed to decode seasonal condition: %w", err)
		}
		return c, nil
	case RuleTypeVolume:
		var c VolumeCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("failed to decode volume condition: %w", err)
		}
		return c, nil
	case RuleTypePromotional:
		var c PromotionalCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("failed to decode promotional condition: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown rule type: %s", ruleType)
	}
}

// Rule is an ordered pricing policy. Rules are read-only snapshot input to a
// calculation; nothing in this service mutates them.
type Rule struct {
	ID         uuid.UUID
	Name       string
	Type       RuleType
	Condition  Condition
	Multiplier decimal.Decimal
	Active     bool
	Priority   int
	StartDate  *time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
}

// InEffect reports whether the rule is active and asOf falls inside its
// validity window. An unset bound is unbounded on that side.
func (r Rule) InEffect(asOf time.Time) bool {
	if !r.Active {
		return false
	}
	if r.StartDate != nil && asOf.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && asOf.After(*r.EndDate) {
		return false
	}
	return true
}
