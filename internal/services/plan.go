package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	rediscache "github.com/dermalab/dermacare-backend/internal/clients/redis"
	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
)

// ErrNoProfile is returned by plan generation when no profile is
// resolvable for the user. Plan reads never return it; absence of a
// profile is an explicit result state there.
var ErrNoProfile = errors.New("no skin profile found")

type PlanState string

const (
	// PlanStateNoProfile: the user never completed the quiz. A
	// legitimate UI state, not an error.
	PlanStateNoProfile PlanState = "no_profile"
	// PlanStateNotFound: a profile exists but no plan was generated
	// for its current version yet.
	PlanStateNotFound PlanState = "not_found"
	PlanStateReady    PlanState = "ready"
	// PlanStateReadyWithoutProfile: no profile resolved (even after
	// retry) but a historical plan exists; availability wins over
	// strict consistency on this read path.
	PlanStateReadyWithoutProfile PlanState = "ready_without_profile"
)

type PlanResult struct {
	State             PlanState        `json:"state"`
	Plan              *domain.CarePlan `json:"plan,omitempty"`
	Expired           bool             `json:"expired"`
	DaysSinceCreation int              `json:"days_since_creation,omitempty"`
}

type PlanService interface {
	// GetPlan serves the plan for the user's current profile version.
	// explicitProfileID is the read-your-write override: a caller that
	// just wrote a profile can name it to bypass latest-version
	// resolution. An id owned by another user is ignored.
	GetPlan(ctx context.Context, userID uuid.UUID, explicitProfileID *uuid.UUID) (*PlanResult, error)

	// GeneratePlan derives and stores a fresh schedule from the
	// resolution of the given (or current) profile version.
	GeneratePlan(ctx context.Context, userID uuid.UUID, explicitProfileID *uuid.UUID) (*domain.CarePlan, error)
}

type planService struct {
	log        *logger.Logger
	cache      rediscache.Cache
	profiles   repos.ProfileRepo
	plans      repos.PlanRepo
	rec        RecommendationService
	cacheTTL   time.Duration
	retryDelay time.Duration
	now        func() time.Time
}

func NewPlanService(
	baseLog *logger.Logger,
	cache rediscache.Cache,
	profiles repos.ProfileRepo,
	plans repos.PlanRepo,
	rec RecommendationService,
	cacheTTL time.Duration,
	retryDelay time.Duration,
) PlanService {
	return &planService{
		log:        baseLog.With("service", "PlanService"),
		cache:      cache,
		profiles:   profiles,
		plans:      plans,
		rec:        rec,
		cacheTTL:   cacheTTL,
		retryDelay: retryDelay,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// resolveProfile finds the profile a lookup should run against:
// explicit id first (ownership-checked), then latest version. Because
// a profile write and the first read can race, a missing latest
// version is retried exactly once after a short fixed delay.
func (s *planService) resolveProfile(ctx context.Context, userID uuid.UUID, explicitProfileID *uuid.UUID) (*domain.SkinProfile, error) {
	if explicitProfileID != nil && *explicitProfileID != uuid.Nil {
		p, err := s.profiles.GetByID(ctx, nil, *explicitProfileID)
		if err != nil {
			s.log.Warn("explicit profile lookup failed, falling back to latest", "profile_id", *explicitProfileID, "error", err)
		} else if p != nil {
			if p.UserID == userID {
				return p, nil
			}
			s.log.Warn("explicit profile owned by another user, ignoring",
				"user_id", userID, "profile_id", *explicitProfileID)
		}
	}

	p, err := s.profiles.GetLatest(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}
	return s.profiles.GetLatest(ctx, nil, userID)
}

func (s *planService) GetPlan(ctx context.Context, userID uuid.UUID, explicitProfileID *uuid.UUID) (*PlanResult, error) {
	profile, err := s.resolveProfile(ctx, userID, explicitProfileID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}

	if profile == nil {
		prior, perr := s.plans.GetLatest(ctx, nil, userID)
		if perr != nil {
			s.log.Warn("historical plan lookup failed", "user_id", userID, "error", perr)
		}
		if prior != nil {
			res := s.ready(prior)
			res.State = PlanStateReadyWithoutProfile
			return res, nil
		}
		return &PlanResult{State: PlanStateNoProfile}, nil
	}

	key := planKey(userID, profile.Version)
	plan, err := lookupTiered(ctx, s.log, s.cache, key, s.cacheTTL,
		func(ctx context.Context) (*domain.CarePlan, error) {
			return s.plans.GetByUserProfile(ctx, nil, userID, profile.ID)
		},
		nil, // generation is an explicit collaborator call, never implicit
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return &PlanResult{State: PlanStateNotFound}, nil
	}
	return s.ready(plan), nil
}

func (s *planService) ready(plan *domain.CarePlan) *PlanResult {
	days := int(s.now().Sub(plan.CreatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &PlanResult{
		State:             PlanStateReady,
		Plan:              plan,
		Expired:           days >= domain.PlanHorizonDays,
		DaysSinceCreation: days,
	}
}

func (s *planService) GeneratePlan(ctx context.Context, userID uuid.UUID, explicitProfileID *uuid.UUID) (*domain.CarePlan, error) {
	profile, err := s.resolveProfile(ctx, userID, explicitProfileID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		return nil, ErrNoProfile
	}

	session, err := s.rec.GetResolution(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("resolve recommendations: %w", err)
	}

	plan, err := buildPlan(profile, session, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.plans.Create(ctx, nil, plan); err != nil {
		return nil, fmt.Errorf("store plan: %w", err)
	}
	cacheSet(ctx, s.log, s.cache, planKey(userID, profile.Version), s.cacheTTL, plan)
	return plan, nil
}

var morningSteps = []string{
	domain.CategoryCleanser,
	domain.CategoryToner,
	domain.CategorySerum,
	domain.CategoryMoisturizer,
	domain.CategorySunscreen,
}

var eveningSteps = []string{
	domain.CategoryCleanser,
	domain.CategoryTreatment,
	domain.CategoryMask,
	domain.CategoryMoisturizer,
}

// buildPlan derives the day-indexed schedule from a resolution:
// PlanHorizonDays days of morning and evening routines, rotating
// through each step's selected products so the whole selection gets
// used. Masks run once a week; steps the resolution knows but neither
// routine lists land in the evening routine.
func buildPlan(profile *domain.SkinProfile, session *domain.RecommendationSession, now time.Time) (*domain.CarePlan, error) {
	var selected map[string][]uuid.UUID
	if err := json.Unmarshal(session.Steps, &selected); err != nil {
		return nil, fmt.Errorf("decode session steps: %w", err)
	}

	inRoutine := map[string]bool{}
	for _, s := range morningSteps {
		inRoutine[s] = true
	}
	for _, s := range eveningSteps {
		inRoutine[s] = true
	}
	var extra []string
	for name := range selected {
		if !inRoutine[name] {
			extra = append(extra, name)
		}
	}
	domain.SortSteps(extra)

	pick := func(step string, day int) []uuid.UUID {
		ids := selected[step]
		if len(ids) == 0 {
			return nil
		}
		return []uuid.UUID{ids[day%len(ids)]}
	}

	days := make([]domain.PlanDay, domain.PlanHorizonDays)
	for d := 0; d < domain.PlanHorizonDays; d++ {
		morning := map[string][]uuid.UUID{}
		for _, step := range morningSteps {
			if ids := pick(step, d); ids != nil {
				morning[step] = ids
			}
		}
		evening := map[string][]uuid.UUID{}
		for _, step := range eveningSteps {
			if step == domain.CategoryMask && d%7 != 6 {
				continue
			}
			if ids := pick(step, d); ids != nil {
				evening[step] = ids
			}
		}
		for _, step := range extra {
			if ids := pick(step, d); ids != nil {
				evening[step] = ids
			}
		}
		days[d] = domain.PlanDay{Day: d + 1, Morning: morning, Evening: evening}
	}

	daysJSON, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("encode plan days: %w", err)
	}
	return &domain.CarePlan{
		ID:             uuid.New(),
		UserID:         profile.UserID,
		ProfileID:      profile.ID,
		ProfileVersion: profile.Version,
		Days:           datatypes.JSON(daysJSON),
		CreatedAt:      now,
	}, nil
}
