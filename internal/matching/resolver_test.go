package matching

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dermalab/dermacare-backend/internal/domain"
)

type productOpts struct {
	skinTypes   []string
	concerns    []string
	ingredients []string
	hero        bool
	priority    int
	createdAt   time.Time
	inactive    bool
}

func testProduct(name, category string, opts productOpts) domain.Product {
	mustJSON := func(v any) datatypes.JSON {
		b, _ := json.Marshal(v)
		return datatypes.JSON(b)
	}
	created := opts.createdAt
	if created.IsZero() {
		created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		SkinTypes:   mustJSON(opts.skinTypes),
		Concerns:    mustJSON(opts.concerns),
		Ingredients: mustJSON(opts.ingredients),
		Hero:        opts.hero,
		Priority:    opts.priority,
		Active:      !opts.inactive,
		CreatedAt:   created,
	}
}

func names(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestResolveStepNeverExceedsMaxItems(t *testing.T) {
	catalog := []domain.Product{
		testProduct("a", domain.CategoryCleanser, productOpts{}),
		testProduct("b", domain.CategoryCleanser, productOpts{}),
		testProduct("c", domain.CategoryCleanser, productOpts{}),
		testProduct("d", domain.CategoryCleanser, productOpts{}),
	}
	spec := StepSpec{Categories: []string{domain.CategoryCleanser}, MaxItems: 2}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
}

func TestResolveStepRelaxesRareConcern(t *testing.T) {
	// One product matches the rare concern; the relaxed tier fills the
	// rest from the category instead of returning a single item.
	catalog := []domain.Product{
		testProduct("rare-match", domain.CategorySerum, productOpts{concerns: []string{"rare_concern"}, priority: 1}),
		testProduct("other-1", domain.CategorySerum, productOpts{concerns: []string{"dullness"}}),
		testProduct("other-2", domain.CategorySerum, productOpts{concerns: []string{"texture"}}),
	}
	spec := StepSpec{
		Categories: []string{domain.CategorySerum},
		Concerns:   []string{"rare_concern"},
		MaxItems:   3,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 3 {
		t.Fatalf("got %d products, want 3 after relaxation: %v", len(got), names(got))
	}
	if got[0].Name != "rare-match" {
		t.Fatalf("strict-tier match should lead: %v", names(got))
	}
}

func TestResolveStepUniversalIgnoresSkinType(t *testing.T) {
	catalog := []domain.Product{
		testProduct("spf-dry", domain.CategorySunscreen, productOpts{skinTypes: []string{"dry"}}),
		testProduct("spf-oily", domain.CategorySunscreen, productOpts{skinTypes: []string{"oily"}}),
	}
	spec := StepSpec{
		Categories: []string{domain.CategorySunscreen},
		SkinTypes:  []string{"oily"},
		MaxItems:   5,
		Universal:  true,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 2 {
		t.Fatalf("universal step filtered by skin type: %v", names(got))
	}
}

func TestResolveStepSkinTypeFiltersStrictTier(t *testing.T) {
	catalog := []domain.Product{
		testProduct("for-dry", domain.CategoryCleanser, productOpts{skinTypes: []string{"dry"}}),
		testProduct("for-oily", domain.CategoryCleanser, productOpts{skinTypes: []string{"oily"}}),
		testProduct("for-all", domain.CategoryCleanser, productOpts{}),
	}
	spec := StepSpec{
		Categories: []string{domain.CategoryCleanser},
		SkinTypes:  []string{"oily"},
		MaxItems:   2,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	for _, p := range got {
		if p.Name == "for-dry" {
			t.Fatalf("dry-only product selected while skin-type matches under-fill is not reached: %v", names(got))
		}
	}
}

func TestResolveStepOrderingHeroPriorityRecency(t *testing.T) {
	old := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	catalog := []domain.Product{
		testProduct("low-priority", domain.CategoryMoisturizer, productOpts{priority: 1, createdAt: old}),
		testProduct("recent", domain.CategoryMoisturizer, productOpts{priority: 5, createdAt: recent}),
		testProduct("older-same-priority", domain.CategoryMoisturizer, productOpts{priority: 5, createdAt: old}),
		testProduct("hero", domain.CategoryMoisturizer, productOpts{hero: true, priority: 0, createdAt: old}),
	}
	spec := StepSpec{Categories: []string{domain.CategoryMoisturizer}, MaxItems: 4}

	got := names(ResolveStep(spec, oilyAcneProfile(), catalog))
	want := []string{"hero", "recent", "older-same-priority", "low-priority"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestResolveStepIngredientNormalization(t *testing.T) {
	catalog := []domain.Product{
		testProduct("niacinamide-serum", domain.CategorySerum, productOpts{ingredients: []string{"Niacinamide 10%"}}),
		testProduct("plain-serum", domain.CategorySerum, productOpts{ingredients: []string{"squalane"}}),
	}
	spec := StepSpec{
		Categories:  []string{domain.CategorySerum},
		Ingredients: []string{"niacinamide"},
		MaxItems:    1,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 1 || got[0].Name != "niacinamide-serum" {
		t.Fatalf("ingredient variants should intersect after normalization: %v", names(got))
	}
}

func TestResolveStepRequiredFlagsHeldThroughRelaxedTier(t *testing.T) {
	catalog := []domain.Product{
		testProduct("fragranced", domain.CategoryMoisturizer, productOpts{priority: 10}),
		{
			ID:            uuid.New(),
			Name:          "fragrance-free",
			Category:      domain.CategoryMoisturizer,
			FragranceFree: true,
			Active:        true,
			CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	spec := StepSpec{
		Categories:    []string{domain.CategoryMoisturizer},
		Concerns:      []string{"nothing_matches_this"},
		FragranceFree: true,
		MaxItems:      1,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 1 || got[0].Name != "fragrance-free" {
		t.Fatalf("relaxed tier must keep required flags: %v", names(got))
	}
}

func TestResolveStepCategoryOnlyTierFillsLast(t *testing.T) {
	catalog := []domain.Product{
		testProduct("for-dry", domain.CategoryCleanser, productOpts{skinTypes: []string{"dry"}}),
	}
	spec := StepSpec{
		Categories: []string{domain.CategoryCleanser},
		SkinTypes:  []string{"oily"},
		MaxItems:   1,
	}

	got := ResolveStep(spec, oilyAcneProfile(), catalog)
	if len(got) != 1 {
		t.Fatalf("category-only tier should avoid an empty step: %v", names(got))
	}
}

func TestResolveStepSkipsInactiveAndForeignCategories(t *testing.T) {
	catalog := []domain.Product{
		testProduct("inactive", domain.CategoryCleanser, productOpts{inactive: true}),
		testProduct("toner", domain.CategoryToner, productOpts{}),
	}
	spec := StepSpec{Categories: []string{domain.CategoryCleanser}, MaxItems: 3}

	if got := ResolveStep(spec, oilyAcneProfile(), catalog); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", names(got))
	}
}

func TestParseStepsDecodesSpecs(t *testing.T) {
	raw := datatypes.JSON([]byte(`{
		"cleanser": {"categories": ["cleanser"], "skin_types": ["oily"], "max_items": 2},
		"sunscreen": {"categories": ["sunscreen"], "universal": true}
	}`))
	steps, err := ParseSteps(raw)
	if err != nil {
		t.Fatalf("ParseSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if !steps["sunscreen"].Universal {
		t.Fatalf("sunscreen should be universal")
	}
	if steps["cleanser"].MaxItems != 2 {
		t.Fatalf("cleanser max_items = %d, want 2", steps["cleanser"].MaxItems)
	}

	if _, err := ParseSteps(datatypes.JSON([]byte(`[`))); err == nil {
		t.Fatalf("malformed steps should error")
	}
}
