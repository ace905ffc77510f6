package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stashspot/service-booking/internal/domain/pricing"
)

// RuleModel is the GORM model for the pricing_rules table. The matching
// payload is stored as JSON and decoded into the typed condition on read.
type RuleModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name       string          `gorm:"not null;size:100"`
	RuleType   string          `gorm:"not null;size:20;index"`
	Condition  json.RawMessage `gorm:"type:jsonb;not null"`
	Multiplier decimal.Decimal `gorm:"type:numeric(6,4);not null"`
	Active     bool            `gorm:"not null;default:true;index"`
	Priority   int             `gorm:"not null;default:0"`
	StartDate  *time.Time      `gorm:""`
	EndDate    *time.Time      `gorm:""`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RuleModel) TableName() string {
	return "pricing_rules"
}

// GormRuleRepository is the GORM-based implementation of RuleRepository.
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository.
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// ActiveRules returns a snapshot of all rules flagged active, in the
// application order the engine expects (priority, then creation time).
func (r *GormRuleRepository) ActiveRules(ctx context.Context) ([]pricing.Rule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var models []RuleModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&models).Error; err != nil {
		return nil, storeErr("load active pricing rules", err)
	}
	return toDomainRules(models)
}

// ListAll retrieves all rules with pagination (admin).
func (r *GormRuleRepository) ListAll(ctx context.Context, page, limit int) ([]pricing.Rule, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&RuleModel{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count pricing rules", err)
	}

	var models []RuleModel
	offset := (page - 1) * limit
	if err := q.Order("priority ASC, created_at ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, storeErr("list pricing rules", err)
	}

	rules, err := toDomainRules(models)
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func toDomainRules(models []RuleModel) ([]pricing.Rule, error) {
	rules := make([]pricing.Rule, len(models))
	for i, m := range models {
		cond, err := pricing.DecodeCondition(pricing.RuleType(m.RuleType), m.Condition)
		if err != nil {
			return nil, err
		}
		rules[i] = pricing.Rule{
			ID:         m.ID,
			Name:       m.Name,
			Type:       pricing.RuleType(m.RuleType),
			Condition:  cond,
			Multiplier: m.Multiplier,
			Active:     m.Active,
			Priority:   m.Priority,
			StartDate:  m.StartDate,
			EndDate:    m.EndDate,
			CreatedAt:  m.CreatedAt,
		}
	}
	return rules, nil
}
