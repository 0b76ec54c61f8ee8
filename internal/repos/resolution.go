package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

// SessionRepo stores materialized recommendation sessions. Rows are
// immutable once written; a new profile version gets a new row.
type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.RecommendationSession) (*domain.RecommendationSession, error)
	GetByUserProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) (*domain.RecommendationSession, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.RecommendationSession) (*domain.RecommendationSession, error) {
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

func (r *sessionRepo) GetByUserProfile(ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID) (*domain.RecommendationSession, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || profileID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.RecommendationSession
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
