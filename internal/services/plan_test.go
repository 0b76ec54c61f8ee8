package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	rediscache "github.com/dermalab/dermacare-backend/internal/clients/redis"
	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/repos"
	"github.com/dermalab/dermacare-backend/internal/repos/testutil"
)

func newPlanTestService(t *testing.T, tx *gorm.DB, cache rediscache.Cache) PlanService {
	t.Helper()
	log := testutil.Logger(t)
	profiles := repos.NewProfileRepo(tx, log)
	rec := NewRecommendationService(log, cache,
		profiles,
		repos.NewRuleRepo(tx, log),
		repos.NewProductRepo(tx, log),
		repos.NewSessionRepo(tx, log),
		time.Minute,
	)
	return NewPlanService(log, cache, profiles, repos.NewPlanRepo(tx, log), rec, time.Minute, time.Millisecond)
}

func seedPlanRow(t *testing.T, ctx context.Context, tx *gorm.DB, userID, profileID uuid.UUID, version int, createdAt time.Time) *domain.CarePlan {
	t.Helper()
	plan := &domain.CarePlan{
		ID:             uuid.New(),
		UserID:         userID,
		ProfileID:      profileID,
		ProfileVersion: version,
		Days:           datatypes.JSON([]byte(`[]`)),
		CreatedAt:      createdAt,
	}
	if err := tx.WithContext(ctx).Create(plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func seedBaselineCatalog(t *testing.T, ctx context.Context, tx *gorm.DB) {
	t.Helper()
	testutil.SeedProduct(t, ctx, tx, "Gel Cleanser", domain.CategoryCleanser, []string{domain.SkinTypeOily})
	testutil.SeedProduct(t, ctx, tx, "Light Lotion", domain.CategoryMoisturizer, []string{domain.SkinTypeOily})
	testutil.SeedProduct(t, ctx, tx, "Daily SPF", domain.CategorySunscreen, nil)
}

func TestGetPlanNoProfile(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-noprofile@example.com")

	svc := newPlanTestService(t, tx, nil)
	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateNoProfile {
		t.Fatalf("State = %s, want %s", res.State, PlanStateNoProfile)
	}
	if res.Plan != nil {
		t.Fatalf("no-profile result carries a plan")
	}
}

func TestGetPlanNotFound(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-notfound@example.com")
	testutil.SeedProfile(t, ctx, tx, user.ID, 1, domain.SkinTypeOily)

	svc := newPlanTestService(t, tx, nil)
	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateNotFound {
		t.Fatalf("State = %s, want %s", res.State, PlanStateNotFound)
	}
}

func TestGeneratePlanThenGetReady(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-ready@example.com")
	profile := testutil.SeedProfile(t, ctx, tx, user.ID, 1, domain.SkinTypeOily)
	seedBaselineCatalog(t, ctx, tx)

	svc := newPlanTestService(t, tx, nil)
	plan, err := svc.GeneratePlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if plan.ProfileID != profile.ID || plan.ProfileVersion != 1 {
		t.Fatalf("plan keyed to %s v%d, want %s v1", plan.ProfileID, plan.ProfileVersion, profile.ID)
	}

	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateReady {
		t.Fatalf("State = %s, want %s", res.State, PlanStateReady)
	}
	if res.Plan == nil || res.Plan.ID != plan.ID {
		t.Fatalf("served plan does not match the generated one")
	}
	if res.Expired || res.DaysSinceCreation != 0 {
		t.Fatalf("fresh plan reported expired=%v days=%d", res.Expired, res.DaysSinceCreation)
	}
}

func TestGeneratePlanNoProfile(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-gen-noprofile@example.com")

	svc := newPlanTestService(t, tx, nil)
	if _, err := svc.GeneratePlan(ctx, user.ID, nil); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("err = %v, want ErrNoProfile", err)
	}
}

func TestGetPlanExpiry(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-expiry@example.com")
	profile := testutil.SeedProfile(t, ctx, tx, user.ID, 1, domain.SkinTypeOily)

	svc := newPlanTestService(t, tx, nil)

	// 27 full days old: served, not expired.
	created := time.Now().UTC().Add(-27 * 24 * time.Hour)
	plan := seedPlanRow(t, ctx, tx, user.ID, profile.ID, 1, created)
	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateReady || res.Expired || res.DaysSinceCreation != 27 {
		t.Fatalf("27-day plan: state=%s expired=%v days=%d", res.State, res.Expired, res.DaysSinceCreation)
	}

	// Age the same row past the horizon: still served, flagged.
	if err := tx.WithContext(ctx).Model(&domain.CarePlan{}).Where("id = ?", plan.ID).
		Update("created_at", time.Now().UTC().Add(-domain.PlanHorizonDays*24*time.Hour)).Error; err != nil {
		t.Fatalf("age plan: %v", err)
	}
	res, err = svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateReady || !res.Expired || res.DaysSinceCreation != domain.PlanHorizonDays {
		t.Fatalf("aged plan: state=%s expired=%v days=%d", res.State, res.Expired, res.DaysSinceCreation)
	}
	if res.Plan == nil {
		t.Fatalf("expired plan must still be served")
	}
}

func TestGetPlanReadyWithoutProfile(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-orphan@example.com")
	// A historical plan whose profile rows are gone.
	plan := seedPlanRow(t, ctx, tx, user.ID, uuid.New(), 1, time.Now().UTC())

	svc := newPlanTestService(t, tx, nil)
	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateReadyWithoutProfile {
		t.Fatalf("State = %s, want %s", res.State, PlanStateReadyWithoutProfile)
	}
	if res.Plan == nil || res.Plan.ID != plan.ID {
		t.Fatalf("historical plan not served")
	}
}

func TestGetPlanExplicitProfileOverride(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-override@example.com")
	v1 := testutil.SeedProfile(t, ctx, tx, user.ID, 1, domain.SkinTypeOily)
	v2 := testutil.SeedProfile(t, ctx, tx, user.ID, 2, domain.SkinTypeDry)
	p1 := seedPlanRow(t, ctx, tx, user.ID, v1.ID, 1, time.Now().UTC())
	seedPlanRow(t, ctx, tx, user.ID, v2.ID, 2, time.Now().UTC())

	svc := newPlanTestService(t, tx, nil)

	// Naming the older profile serves its plan instead of latest.
	res, err := svc.GetPlan(ctx, user.ID, &v1.ID)
	if err != nil {
		t.Fatalf("GetPlan explicit: %v", err)
	}
	if res.State != PlanStateReady || res.Plan.ID != p1.ID {
		t.Fatalf("explicit override: state=%s plan=%v", res.State, res.Plan)
	}
}

func TestGetPlanForeignExplicitProfileIgnored(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))

	owner := testutil.SeedUser(t, ctx, tx, "plan-owner@example.com")
	foreign := testutil.SeedProfile(t, ctx, tx, owner.ID, 1, domain.SkinTypeOily)
	seedPlanRow(t, ctx, tx, owner.ID, foreign.ID, 1, time.Now().UTC())

	caller := testutil.SeedUser(t, ctx, tx, "plan-caller@example.com")
	own := testutil.SeedProfile(t, ctx, tx, caller.ID, 1, domain.SkinTypeDry)
	ownPlan := seedPlanRow(t, ctx, tx, caller.ID, own.ID, 1, time.Now().UTC())

	svc := newPlanTestService(t, tx, nil)
	res, err := svc.GetPlan(ctx, caller.ID, &foreign.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if res.State != PlanStateReady || res.Plan.ID != ownPlan.ID {
		t.Fatalf("foreign profile id not ignored: state=%s plan=%v", res.State, res.Plan)
	}
}

// fakeProfileRepo serves GetLatest from a script of responses, one per
// call, to exercise the write/read race retry.
type fakeProfileRepo struct {
	script []*domain.SkinProfile
	calls  int
}

func (f *fakeProfileRepo) Create(context.Context, *gorm.DB, *domain.SkinProfile) (*domain.SkinProfile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProfileRepo) GetByID(context.Context, *gorm.DB, uuid.UUID) (*domain.SkinProfile, error) {
	return nil, nil
}

func (f *fakeProfileRepo) GetLatest(context.Context, *gorm.DB, uuid.UUID) (*domain.SkinProfile, error) {
	i := f.calls
	f.calls++
	if i >= len(f.script) {
		return nil, nil
	}
	return f.script[i], nil
}

func (f *fakeProfileRepo) GetByUserVersion(context.Context, *gorm.DB, uuid.UUID, int) (*domain.SkinProfile, error) {
	return nil, nil
}

func (f *fakeProfileRepo) NextVersion(context.Context, *gorm.DB, uuid.UUID) (int, error) {
	return 1, nil
}

func TestGetPlanRetriesLatestProfileOnce(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "plan-retry@example.com")
	profile := &domain.SkinProfile{
		ID:        uuid.New(),
		UserID:    user.ID,
		Version:   1,
		SkinType:  domain.SkinTypeOily,
		CreatedAt: time.Now().UTC(),
	}

	// First GetLatest misses, the retry sees the fresh write.
	profiles := &fakeProfileRepo{script: []*domain.SkinProfile{nil, profile}}
	svc := NewPlanService(log, nil, profiles, repos.NewPlanRepo(tx, log), nil, time.Minute, time.Millisecond)

	res, err := svc.GetPlan(ctx, user.ID, nil)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if profiles.calls != 2 {
		t.Fatalf("GetLatest called %d times, want 2", profiles.calls)
	}
	if res.State != PlanStateNotFound {
		t.Fatalf("State = %s, want %s (profile found on retry, no plan yet)", res.State, PlanStateNotFound)
	}
}

func TestBuildPlanSchedule(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	spf := uuid.New()
	mask := uuid.New()
	treat := uuid.New()

	selected := map[string][]uuid.UUID{
		domain.CategoryCleanser:  {a, b},
		domain.CategorySunscreen: {spf},
		domain.CategoryMask:      {mask},
		domain.CategoryTreatment: {treat},
	}
	raw, err := json.Marshal(selected)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	profile := &domain.SkinProfile{ID: uuid.New(), UserID: uuid.New(), Version: 3}
	session := &domain.RecommendationSession{Steps: datatypes.JSON(raw)}

	plan, err := buildPlan(profile, session, time.Now().UTC())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.UserID != profile.UserID || plan.ProfileID != profile.ID || plan.ProfileVersion != 3 {
		t.Fatalf("plan identity = %+v", plan)
	}

	var days []domain.PlanDay
	if err := json.Unmarshal(plan.Days, &days); err != nil {
		t.Fatalf("decode days: %v", err)
	}
	if len(days) != domain.PlanHorizonDays {
		t.Fatalf("len(days) = %d, want %d", len(days), domain.PlanHorizonDays)
	}
	if days[0].Day != 1 || days[27].Day != 28 {
		t.Fatalf("day numbering: first=%d last=%d", days[0].Day, days[27].Day)
	}

	// Multi-product steps rotate day by day.
	if got := days[0].Morning[domain.CategoryCleanser]; len(got) != 1 || got[0] != a {
		t.Fatalf("day 1 cleanser = %v, want [%s]", got, a)
	}
	if got := days[1].Morning[domain.CategoryCleanser]; len(got) != 1 || got[0] != b {
		t.Fatalf("day 2 cleanser = %v, want [%s]", got, b)
	}
	if got := days[2].Morning[domain.CategoryCleanser]; len(got) != 1 || got[0] != a {
		t.Fatalf("day 3 cleanser = %v, want [%s]", got, a)
	}

	// Sun protection is a morning step every day.
	for _, d := range days {
		if got := d.Morning[domain.CategorySunscreen]; len(got) != 1 || got[0] != spf {
			t.Fatalf("day %d sunscreen = %v", d.Day, got)
		}
	}

	// Masks run weekly, in the evening.
	for _, d := range days {
		_, hasMask := d.Evening[domain.CategoryMask]
		wantMask := d.Day%7 == 0
		if hasMask != wantMask {
			t.Fatalf("day %d mask present=%v, want %v", d.Day, hasMask, wantMask)
		}
	}

	// Treatments are evening-only.
	if _, ok := days[0].Morning[domain.CategoryTreatment]; ok {
		t.Fatalf("treatment scheduled in the morning")
	}
	if got := days[0].Evening[domain.CategoryTreatment]; len(got) != 1 || got[0] != treat {
		t.Fatalf("day 1 evening treatment = %v", got)
	}
}
