package matching

import (
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/datatypes"

	"github.com/dermalab/dermacare-backend/internal/domain"
)

// DefaultMaxItems bounds a step that declares no max of its own.
const DefaultMaxItems = 3

// StepSpec is one step's filter spec inside a rule's Steps map.
type StepSpec struct {
	Categories     []string `json:"categories"`
	SkinTypes      []string `json:"skin_types,omitempty"`
	Concerns       []string `json:"concerns,omitempty"`
	Ingredients    []string `json:"ingredients,omitempty"`
	FragranceFree  bool     `json:"fragrance_free,omitempty"`
	NonComedogenic bool     `json:"non_comedogenic,omitempty"`
	MaxItems       int      `json:"max_items,omitempty"`

	// Universal steps (sun protection) are never filtered by skin
	// type.
	Universal bool `json:"universal,omitempty"`
}

// ParseSteps decodes a rule's step map.
func ParseSteps(raw datatypes.JSON) (map[string]StepSpec, error) {
	if len(raw) == 0 {
		return map[string]StepSpec{}, nil
	}
	var steps map[string]StepSpec
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return steps, nil
}

// ResolveStep selects up to MaxItems products for one step. Selection
// is tiered; a tier is only engaged when the previous one under-fills
// the requested count:
//
//	1. strict:        category + skin type + concerns + required flags + ingredients
//	2. relaxed:       drop concerns and ingredients, keep category, skin type and flags
//	3. category-only: category alone
//
// Universal steps skip the skin-type filter in every tier. Within a
// tier products order hero first, then priority descending, then
// newest first. Pure: no side effects.
func ResolveStep(spec StepSpec, profile *domain.SkinProfile, catalog []domain.Product) []domain.Product {
	max := spec.MaxItems
	if max <= 0 {
		max = DefaultMaxItems
	}

	candidates := make([]domain.Product, 0, len(catalog))
	for _, p := range catalog {
		if p.Active && inSet(p.Category, spec.Categories) {
			candidates = append(candidates, p)
		}
	}
	sortCandidates(candidates)

	specIngredients := NormalizeIngredients(spec.Ingredients)

	strict := func(p domain.Product) bool {
		if !spec.Universal && !skinTypeOK(spec.SkinTypes, p) {
			return false
		}
		if !flagsOK(spec, p) {
			return false
		}
		if len(spec.Concerns) > 0 && !intersects(spec.Concerns, jsonStrings(p.Concerns)) {
			return false
		}
		if len(specIngredients) > 0 && !intersects(specIngredients, NormalizeIngredients(jsonStrings(p.Ingredients))) {
			return false
		}
		return true
	}
	relaxed := func(p domain.Product) bool {
		if !spec.Universal && !skinTypeOK(spec.SkinTypes, p) {
			return false
		}
		return flagsOK(spec, p)
	}
	categoryOnly := func(p domain.Product) bool { return true }

	picked := make([]domain.Product, 0, max)
	seen := make(map[string]bool, max)
	for _, tier := range []func(domain.Product) bool{strict, relaxed, categoryOnly} {
		for _, p := range candidates {
			if len(picked) >= max {
				return picked
			}
			if seen[p.ID.String()] || !tier(p) {
				continue
			}
			picked = append(picked, p)
			seen[p.ID.String()] = true
		}
	}
	return picked
}

func sortCandidates(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Hero != b.Hero {
			return a.Hero
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Name < b.Name
	})
}

// skinTypeOK: a spec without skin types accepts everything; a product
// without skin types suits every skin type.
func skinTypeOK(specTypes []string, p domain.Product) bool {
	if len(specTypes) == 0 {
		return true
	}
	productTypes := jsonStrings(p.SkinTypes)
	if len(productTypes) == 0 {
		return true
	}
	return intersects(specTypes, productTypes)
}

func flagsOK(spec StepSpec, p domain.Product) bool {
	if spec.FragranceFree && !p.FragranceFree {
		return false
	}
	if spec.NonComedogenic && !p.NonComedogenic {
		return false
	}
	return true
}

func inSet(s string, set []string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if inSet(x, b) {
			return true
		}
	}
	return false
}

func jsonStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
