package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
)

// Invalidator is the cache invalidation hook the profile-update path
// calls whenever a version is superseded.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID, profileVersion int)
}

// ProfileInput is a completed (or re-completed) quiz submission.
type ProfileInput struct {
	SkinType       string         `json:"skin_type" binding:"required"`
	Sensitivity    string         `json:"sensitivity"`
	AcneLevel      int            `json:"acne_level"`
	Dehydration    string         `json:"dehydration"`
	RiskFlags      []string       `json:"risk_flags"`
	MedicalMarkers map[string]any `json:"medical_markers"`
	Notes          string         `json:"notes"`
}

type ProfileService interface {
	// Submit appends a new profile version; existing versions are
	// never mutated. Stale cache entries for the superseded version
	// are invalidated best-effort.
	Submit(ctx context.Context, userID uuid.UUID, in ProfileInput) (*domain.SkinProfile, error)
	Current(ctx context.Context, userID uuid.UUID) (*domain.SkinProfile, error)
}

type profileService struct {
	log         *logger.Logger
	profiles    repos.ProfileRepo
	invalidator Invalidator
}

func NewProfileService(baseLog *logger.Logger, profiles repos.ProfileRepo, invalidator Invalidator) ProfileService {
	return &profileService{
		log:         baseLog.With("service", "ProfileService"),
		profiles:    profiles,
		invalidator: invalidator,
	}
}

func (s *profileService) Submit(ctx context.Context, userID uuid.UUID, in ProfileInput) (*domain.SkinProfile, error) {
	if in.AcneLevel < 0 || in.AcneLevel > 5 {
		return nil, fmt.Errorf("acne_level %d out of range [0,5]", in.AcneLevel)
	}

	previous, err := s.profiles.GetLatest(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load latest profile: %w", err)
	}

	version := 1
	if previous != nil {
		version = previous.Version + 1
	}

	riskFlags, err := json.Marshal(in.RiskFlags)
	if err != nil {
		return nil, fmt.Errorf("encode risk flags: %w", err)
	}
	markers, err := json.Marshal(in.MedicalMarkers)
	if err != nil {
		return nil, fmt.Errorf("encode medical markers: %w", err)
	}

	profile := &domain.SkinProfile{
		ID:             uuid.New(),
		UserID:         userID,
		Version:        version,
		SkinType:       in.SkinType,
		Sensitivity:    in.Sensitivity,
		AcneLevel:      in.AcneLevel,
		Dehydration:    in.Dehydration,
		RiskFlags:      datatypes.JSON(riskFlags),
		MedicalMarkers: datatypes.JSON(markers),
		Notes:          in.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.profiles.Create(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("store profile v%d: %w", version, err)
	}

	if previous != nil && s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID, previous.Version)
	}

	s.log.Info("profile version created", "user_id", userID, "version", version)
	return profile, nil
}

func (s *profileService) Current(ctx context.Context, userID uuid.UUID) (*domain.SkinProfile, error) {
	return s.profiles.GetLatest(ctx, nil, userID)
}
