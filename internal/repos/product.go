package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

type ProductRepo interface {
	GetActiveByCategories(ctx context.Context, tx *gorm.DB, categories []string) ([]domain.Product, error)
	GetAllActive(ctx context.Context, tx *gorm.DB) ([]domain.Product, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]domain.Product, error)
	UpsertByName(ctx context.Context, tx *gorm.DB, row *domain.Product) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) GetActiveByCategories(ctx context.Context, tx *gorm.DB, categories []string) ([]domain.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.Product
	if len(categories) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("active = ? AND category IN ?", true, categories).
		Order("category ASC, priority DESC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetAllActive(ctx context.Context, tx *gorm.DB) ([]domain.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.Product
	if err := t.WithContext(ctx).
		Where("active = ?", true).
		Order("category ASC, priority DESC, created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]domain.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []domain.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) UpsertByName(ctx context.Context, tx *gorm.DB, row *domain.Product) error {
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
			"brand":           row.Brand,
			"category":        row.Category,
			"skin_types":      row.SkinTypes,
			"concerns":        row.Concerns,
			"ingredients":     row.Ingredients,
			"fragrance_free":  row.FragranceFree,
			"non_comedogenic": row.NonComedogenic,
			"hero":            row.Hero,
			"priority":        row.Priority,
			"active":          row.Active,
			"updated_at":      row.UpdatedAt,
		}).
		FirstOrCreate(row).Error
}
