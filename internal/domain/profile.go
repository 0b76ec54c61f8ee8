package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Skin type values reported by the quiz flow.
const (
	SkinTypeNormal      = "normal"
	SkinTypeDry         = "dry"
	SkinTypeOily        = "oily"
	SkinTypeCombination = "combination"
	SkinTypeSensitive   = "sensitive"
)

// SkinProfile is an immutable, versioned snapshot of a user's
// self-reported skin assessment. Resubmitting the quiz creates a new
// version; rows are never updated in place.
type SkinProfile struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_profile_user_version,priority:1" json:"user_id"`
	Version int       `gorm:"not null;uniqueIndex:idx_profile_user_version,priority:2" json:"version"`

	SkinType    string `gorm:"not null;column:skin_type" json:"skin_type"`
	Sensitivity string `gorm:"column:sensitivity" json:"sensitivity"`
	AcneLevel   int    `gorm:"column:acne_level" json:"acne_level"`
	Dehydration string `gorm:"column:dehydration" json:"dehydration"`

	RiskFlags      datatypes.JSON `gorm:"column:risk_flags" json:"risk_flags"`
	MedicalMarkers datatypes.JSON `gorm:"column:medical_markers" json:"medical_markers"`
	Notes          string         `gorm:"column:notes" json:"notes"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SkinProfile) TableName() string { return "skin_profile" }
