package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecommendationSession is the materialized output of rule matching
// for one profile version: the authoritative step -> product mapping
// plan derivation reads from. At most one row per (user_id,
// profile_id); once written it is immutable and superseded, not
// updated, when the profile version advances.
type RecommendationSession struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_session_user_profile,priority:1" json:"user_id"`
	ProfileID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_session_user_profile,priority:2" json:"profile_id"`
	RuleID    *uuid.UUID `gorm:"type:uuid;column:rule_id" json:"rule_id,omitempty"`
	RuleName  string     `gorm:"column:rule_name" json:"rule_name"`

	// Steps maps step name -> ordered product id list; ProductIDs is
	// the same selection flattened in canonical step order.
	Steps      datatypes.JSON `gorm:"column:steps" json:"steps"`
	ProductIDs datatypes.JSON `gorm:"column:product_ids" json:"product_ids"`

	// Degraded marks a session produced by the baseline fallback
	// because no rule matched.
	Degraded bool `gorm:"column:degraded" json:"degraded"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (RecommendationSession) TableName() string { return "recommendation_session" }
