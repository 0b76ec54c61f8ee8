package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

type PlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.CarePlan) (*domain.CarePlan, error)
	GetByUserProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) (*domain.CarePlan, error)

	// GetLatest returns the newest plan for a user regardless of the
	// profile version it was built for. Used only by the
	// availability-over-consistency read path when no profile is
	// resolvable.
	GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.CarePlan, error)
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.CarePlan) (*domain.CarePlan, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *planRepo) GetByUserProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) (*domain.CarePlan, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || profileID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.CarePlan
	if err := t.WithContext(ctx).
		Where("user_id = ? AND profile_id = ?", userID, profileID).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *planRepo) GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.CarePlan, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.CarePlan
	if err := t.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("profile_version DESC, created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
