package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stashspot/service-booking/internal/domain"
	unitDomain "github.com/stashspot/service-booking/internal/domain/unit"
)

const (
	hoursPerDay   = 24
	hoursPerMonth = 720 // 30 * 24
)

// Calculator derives a base price from the unit tariff and duration bucket,
// then applies rule adjustments and tax to produce a final quote.
type Calculator struct {
	engine  *RuleEngine
	taxRate decimal.Decimal
}

// NewCalculator creates a Calculator with a flat tax rate (e.g. 0.08 for 8%).
func NewCalculator(engine *RuleEngine, taxRate decimal.Decimal) *Calculator {
	return &Calculator{engine: engine, taxRate: taxRate}
}

// Calculate prices the half-open interval [start, end) on the given unit.
//
// Partial days and months bill as whole units (ceiling, never floor).
// Multipliers compose multiplicatively in engine order, intermediates keep
// full precision, and rounding happens exactly once, half-up to two decimals,
// on the final total. A negative running subtotal is clamped to zero here;
// the rule engine itself never clamps.
func (c *Calculator) Calculate(u *unitDomain.StorageUnit, start, end time.Time, rules []Rule, promoCode string) (*Quote, error) {
	if u == nil {
		return nil, domain.NewNotFoundError("StorageUnit", "")
	}
	if !end.After(start) {
		return nil, domain.NewFieldValidationError("end", "end must be after start")
	}
	if !u.HourlyRate.IsPositive() || !u.DailyRate.IsPositive() {
		return nil, domain.NewNotFoundError("UnitTariff", u.ID.String())
	}

	durationHours := decimal.NewFromInt(int64(end.Sub(start) / time.Second)).
		Div(decimal.NewFromInt(3600))

	var (
		durationType DurationType
		basePrice    decimal.Decimal
	)
	switch {
	case durationHours.GreaterThanOrEqual(decimal.NewFromInt(hoursPerMonth)) && u.HasMonthlyRate():
		durationType = DurationMonthly
		months := durationHours.Div(decimal.NewFromInt(hoursPerMonth)).Ceil()
		basePrice = u.MonthlyRate.Mul(months)
	case durationHours.GreaterThanOrEqual(decimal.NewFromInt(hoursPerDay)):
		durationType = DurationDaily
		days := durationHours.Div(decimal.NewFromInt(hoursPerDay)).Ceil()
		basePrice = u.DailyRate.Mul(days)
	default:
		durationType = DurationHourly
		basePrice = u.HourlyRate.Mul(durationHours)
	}

	mc := MatchContext{
		Start:         start,
		End:           end,
		DurationHours: durationHours,
		PromoCode:     promoCode,
	}

	subtotal := basePrice
	var adjustments []Adjustment
	for _, r := range c.engine.Applicable(rules, start) {
		if r.Condition != nil && !r.Condition.Matches(mc) {
			continue
		}
		before := subtotal
		subtotal = subtotal.Mul(r.Multiplier)
		if subtotal.IsNegative() {
			subtotal = decimal.Zero
		}

		adjType := AdjustmentSurcharge
		if r.Multiplier.LessThan(decimal.NewFromInt(1)) {
			adjType = AdjustmentDiscount
		}
		amount := subtotal.Sub(before)
		percent := decimal.Zero
		if !before.IsZero() {
			percent = amount.Div(before).Mul(decimal.NewFromInt(100))
		}
		adjustments = append(adjustments, Adjustment{
			RuleID:     r.ID,
			RuleName:   r.Name,
			Type:       adjType,
			Multiplier: r.Multiplier,
			Amount:     amount,
			Percent:    percent,
		})
	}

	tax := subtotal.Mul(c.taxRate)
	total := subtotal.Add(tax).Round(2)

	return &Quote{
		UnitID:        u.ID,
		Start:         start,
		End:           end,
		DurationHours: durationHours,
		DurationType:  durationType,
		BasePrice:     basePrice,
		Adjustments:   adjustments,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         total,
		Currency:      u.Currency,
	}, nil
}
