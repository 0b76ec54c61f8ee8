package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlanHorizonDays is the fixed schedule length; a plan this old or
// older is flagged expired (still served).
const PlanHorizonDays = 28

// PlanDay is one day of the derived schedule. Morning and Evening map
// step name -> product ids for that routine.
type PlanDay struct {
	Day     int                    `json:"day"`
	Morning map[string][]uuid.UUID `json:"morning"`
	Evening map[string][]uuid.UUID `json:"evening"`
}

// CarePlan is a day-indexed schedule derived from a
// RecommendationSession. It is valid only for the profile version it
// names; plans keyed to older versions are stale and must not be
// served as current.
type CarePlan struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	ProfileID      uuid.UUID `gorm:"type:uuid;not null;index;column:profile_id" json:"profile_id"`
	ProfileVersion int       `gorm:"not null;column:profile_version" json:"profile_version"`

	Days datatypes.JSON `gorm:"column:days" json:"days"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CarePlan) TableName() string { return "care_plan" }
