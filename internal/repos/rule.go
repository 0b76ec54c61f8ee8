package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

// RuleRepo is read-mostly: the admin tooling owns rule writes, this
// service only lists them (UpsertByName exists for the seeder).
type RuleRepo interface {
	GetActive(ctx context.Context, tx *gorm.DB) ([]*domain.Rule, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*domain.Rule, error)
	UpsertByName(ctx context.Context, tx *gorm.DB, row *domain.Rule) error
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

// GetActive returns active rules in evaluation order: priority
// descending, creation order breaking ties.
func (r *ruleRepo) GetActive(ctx context.Context, tx *gorm.DB) ([]*domain.Rule, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Rule
	if err := t.WithContext(ctx).
		Where("active = ?", true).
		Order("priority DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*domain.Rule, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Rule
	if err := t.WithContext(ctx).
		Order("priority DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) UpsertByName(ctx context.Context, tx *gorm.DB, row *domain.Rule) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Name == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(ctx).
		Where("name = ?", row.Name).
		Assign(map[string]interface{}{
			"priority":   row.Priority,
			"active":     row.Active,
			"conditions": row.Conditions,
			"steps":      row.Steps,
			"updated_at": row.UpdatedAt,
		}).
		FirstOrCreate(row).Error
}
