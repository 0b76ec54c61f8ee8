package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	rediscache "github.com/dermalab/dermacare-backend/internal/clients/redis"
	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/matching"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
)

// RecommendationResult is the collaborator-facing shape of a resolved
// recommendation: the profile it was computed for, the matched rule
// name (empty when the baseline fallback ran) and the per-step product
// lists in canonical step order.
type RecommendationResult struct {
	Profile   *domain.SkinProfile         `json:"profile"`
	RuleName  string                      `json:"rule_name,omitempty"`
	Degraded  bool                        `json:"degraded,omitempty"`
	StepOrder []string                    `json:"step_order"`
	Steps     map[string][]domain.Product `json:"steps"`
}

type RecommendationService interface {
	// GetResolution returns the authoritative resolution for one
	// profile version, computing and persisting it on first request.
	GetResolution(ctx context.Context, profile *domain.SkinProfile) (*domain.RecommendationSession, error)

	// ResolveRecommendations resolves the caller's current profile.
	// (nil, nil) means the user has no profile yet.
	ResolveRecommendations(ctx context.Context, userID uuid.UUID) (*RecommendationResult, error)

	// Invalidate drops the fast-cache entries keyed to a superseded
	// profile version. Called by the profile-update path.
	Invalidate(ctx context.Context, userID uuid.UUID, profileVersion int)
}

type recommendationService struct {
	log      *logger.Logger
	cache    rediscache.Cache
	profiles repos.ProfileRepo
	rules    repos.RuleRepo
	products repos.ProductRepo
	sessions repos.SessionRepo
	cacheTTL time.Duration
	group    singleflight.Group
}

func NewRecommendationService(
	baseLog *logger.Logger,
	cache rediscache.Cache,
	profiles repos.ProfileRepo,
	rules repos.RuleRepo,
	products repos.ProductRepo,
	sessions repos.SessionRepo,
	cacheTTL time.Duration,
) RecommendationService {
	return &recommendationService{
		log:      baseLog.With("service", "RecommendationService"),
		cache:    cache,
		profiles: profiles,
		rules:    rules,
		products: products,
		sessions: sessions,
		cacheTTL: cacheTTL,
	}
}

func (s *recommendationService) GetResolution(ctx context.Context, profile *domain.SkinProfile) (*domain.RecommendationSession, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile required")
	}
	key := resolutionKey(profile.UserID, profile.Version)

	// Concurrent misses for the same key recompute idempotently;
	// singleflight just collapses the redundant work within this
	// process.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return lookupTiered(ctx, s.log, s.cache, key, s.cacheTTL,
			func(ctx context.Context) (*domain.RecommendationSession, error) {
				return s.sessions.GetByUserProfile(ctx, nil, profile.UserID, profile.ID)
			},
			func(ctx context.Context) (*domain.RecommendationSession, error) {
				return s.computeSession(ctx, profile)
			},
			func(ctx context.Context, row *domain.RecommendationSession) error {
				_, err := s.sessions.Create(ctx, nil, row)
				return err
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.RecommendationSession), nil
}

// computeSession runs the matcher and step resolver for one profile
// version. Running it twice without a catalog change yields equivalent
// step coverage, so redundant concurrent computation is harmless.
func (s *recommendationService) computeSession(ctx context.Context, profile *domain.SkinProfile) (*domain.RecommendationSession, error) {
	rules, err := s.rules.GetActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	rule := matching.Match(matching.ProfileFields(profile), rules, s.log)

	var steps map[string]matching.StepSpec
	if rule != nil {
		steps, err = matching.ParseSteps(rule.Steps)
		if err != nil {
			s.log.Warn("matched rule has malformed steps, using baseline fallback", "rule", rule.Name, "error", err)
			rule = nil
		} else if len(steps) == 0 {
			s.log.Warn("matched rule declares no steps, using baseline fallback", "rule", rule.Name)
			rule = nil
		}
	}

	degraded := rule == nil
	if degraded {
		steps = baselineSteps(profile)
		s.log.Warn("no rule matched, serving baseline routine",
			"user_id", profile.UserID, "profile_version", profile.Version)
	}

	stepNames := make([]string, 0, len(steps))
	categories := make([]string, 0, len(steps))
	seenCat := map[string]bool{}
	for name, spec := range steps {
		stepNames = append(stepNames, name)
		for _, c := range spec.Categories {
			if !seenCat[c] {
				seenCat[c] = true
				categories = append(categories, c)
			}
		}
	}
	domain.SortSteps(stepNames)

	catalog, err := s.products.GetActiveByCategories(ctx, nil, categories)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	selected := make(map[string][]uuid.UUID, len(stepNames))
	var flat []uuid.UUID
	for _, name := range stepNames {
		products := matching.ResolveStep(steps[name], profile, catalog)
		ids := make([]uuid.UUID, len(products))
		for i, p := range products {
			ids[i] = p.ID
		}
		selected[name] = ids
		flat = append(flat, ids...)
	}

	stepsJSON, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}
	flatJSON, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encode product ids: %w", err)
	}

	session := &domain.RecommendationSession{
		ID:         uuid.New(),
		UserID:     profile.UserID,
		ProfileID:  profile.ID,
		Steps:      datatypes.JSON(stepsJSON),
		ProductIDs: datatypes.JSON(flatJSON),
		Degraded:   degraded,
		CreatedAt:  time.Now().UTC(),
	}
	if rule != nil {
		id := rule.ID
		session.RuleID = &id
		session.RuleName = rule.Name
	}
	return session, nil
}

// baselineSteps guarantees the presence of the baseline routine when
// no rule matches: cleanser, moisturizer and sun protection, selected
// by skin type only. Sun protection stays universal.
func baselineSteps(profile *domain.SkinProfile) map[string]matching.StepSpec {
	skin := []string{profile.SkinType}
	return map[string]matching.StepSpec{
		domain.CategoryCleanser: {
			Categories: []string{domain.CategoryCleanser},
			SkinTypes:  skin,
			MaxItems:   1,
		},
		domain.CategoryMoisturizer: {
			Categories: []string{domain.CategoryMoisturizer},
			SkinTypes:  skin,
			MaxItems:   1,
		},
		domain.CategorySunscreen: {
			Categories: []string{domain.CategorySunscreen},
			MaxItems:   1,
			Universal:  true,
		},
	}
}

func (s *recommendationService) ResolveRecommendations(ctx context.Context, userID uuid.UUID) (*RecommendationResult, error) {
	profile, err := s.profiles.GetLatest(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve current profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}

	session, err := s.GetResolution(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, profile, session)
}

// hydrate turns a stored session's id lists back into product rows,
// preserving per-step order.
func (s *recommendationService) hydrate(ctx context.Context, profile *domain.SkinProfile, session *domain.RecommendationSession) (*RecommendationResult, error) {
	var selected map[string][]uuid.UUID
	if err := json.Unmarshal(session.Steps, &selected); err != nil {
		return nil, fmt.Errorf("decode session steps: %w", err)
	}

	var all []uuid.UUID
	for _, ids := range selected {
		all = append(all, ids...)
	}
	rows, err := s.products.GetByIDs(ctx, nil, all)
	if err != nil {
		return nil, fmt.Errorf("load session products: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	order := make([]string, 0, len(selected))
	stepProducts := make(map[string][]domain.Product, len(selected))
	for name := range selected {
		order = append(order, name)
	}
	domain.SortSteps(order)
	for _, name := range order {
		list := make([]domain.Product, 0, len(selected[name]))
		for _, id := range selected[name] {
			if p, ok := byID[id]; ok {
				list = append(list, p)
			}
		}
		stepProducts[name] = list
	}

	return &RecommendationResult{
		Profile:   profile,
		RuleName:  session.RuleName,
		Degraded:  session.Degraded,
		StepOrder: order,
		Steps:     stepProducts,
	}, nil
}

func (s *recommendationService) Invalidate(ctx context.Context, userID uuid.UUID, profileVersion int) {
	if s.cache == nil {
		return
	}
	keys := []string{
		resolutionKey(userID, profileVersion),
		planKey(userID, profileVersion),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		// Stale entries are unreachable by version key anyway; failing
		// to delete them proactively is not fatal.
		s.log.Warn("cache invalidation failed", "user_id", userID, "profile_version", profileVersion, "error", err)
	}
}
