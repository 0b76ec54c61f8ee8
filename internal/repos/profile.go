package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

// ProfileRepo reads and appends versioned skin profiles. Rows are
// append-only; there is no update path.
type ProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.SkinProfile) (*domain.SkinProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SkinProfile, error)
	GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.SkinProfile, error)
	GetByUserVersion(ctx context.Context, tx *gorm.DB, userID uuid.UUID, version int) (*domain.SkinProfile, error)
	NextVersion(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.SkinProfile) (*domain.SkinProfile, error) {
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

func (r *profileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SkinProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*domain.SkinProfile
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *profileRepo) GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.SkinProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var out []*domain.SkinProfile
	if err := t.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("version DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *profileRepo) GetByUserVersion(ctx context.Context, tx *gorm.DB, userID uuid.UUID, version int) (*domain.SkinProfile, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil || version <= 0 {
		return nil, nil
	}
	var out []*domain.SkinProfile
	if err := t.WithContext(ctx).
		Where("user_id = ? AND version = ?", userID, version).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *profileRepo) NextVersion(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	latest, err := r.GetLatest(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 1, nil
	}
	return latest.Version + 1, nil
}
