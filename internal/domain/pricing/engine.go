package pricing

import (
	"sort"
	"time"
)

// RuleEngine selects and orders the pricing rules that apply to a calculation.
//
// Ordering is ascending priority with creation time as the tie-break, so the
// sequence of multiplicative adjustments is deterministic. The engine never
// clamps prices; that is the calculator's job.
type RuleEngine struct{}

// NewRuleEngine creates a RuleEngine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// Applicable filters the snapshot to rules in effect at asOf and returns them
// in application order.
func (e *RuleEngine) Applicable(rules []Rule, asOf time.Time) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.InEffect(asOf) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ApplicableOfType is Applicable restricted to a single rule type.
func (e *RuleEngine) ApplicableOfType(rules []Rule, ruleType RuleType, asOf time.Time) []Rule {
	filtered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Type == ruleType {
			filtered = append(filtered, r)
		}
	}
	return e.Applicable(filtered, asOf)
}
