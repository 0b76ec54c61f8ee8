package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rule is a prioritized declarative matcher. Conditions is a JSON map
// of profile field -> condition spec (scalar, array or {gte,lte}
// object); Steps is a JSON map of step name -> filter spec. Rules are
// written by the admin tooling; this service only reads them.
type Rule struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Priority int       `gorm:"not null;index;column:priority" json:"priority"`
	Active   bool      `gorm:"not null;column:active" json:"active"`

	Conditions datatypes.JSON `gorm:"column:conditions" json:"conditions"`
	Steps      datatypes.JSON `gorm:"column:steps" json:"steps"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Rule) TableName() string { return "rule" }
