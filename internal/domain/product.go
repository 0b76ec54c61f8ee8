package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product categories double as routine step categories.
const (
	CategoryCleanser    = "cleanser"
	CategoryToner       = "toner"
	CategorySerum       = "serum"
	CategoryTreatment   = "treatment"
	CategoryMask        = "mask"
	CategoryMoisturizer = "moisturizer"
	CategorySunscreen   = "sunscreen"
)

type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Brand    string    `gorm:"column:brand" json:"brand"`
	Category string    `gorm:"not null;index;column:category" json:"category"`

	SkinTypes   datatypes.JSON `gorm:"column:skin_types" json:"skin_types"`
	Concerns    datatypes.JSON `gorm:"column:concerns" json:"concerns"`
	Ingredients datatypes.JSON `gorm:"column:ingredients" json:"ingredients"`

	FragranceFree  bool `gorm:"column:fragrance_free" json:"fragrance_free"`
	NonComedogenic bool `gorm:"column:non_comedogenic" json:"non_comedogenic"`
	Hero           bool `gorm:"column:hero" json:"hero"`
	Priority       int  `gorm:"column:priority" json:"priority"`
	Active         bool `gorm:"not null;column:active" json:"active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }
