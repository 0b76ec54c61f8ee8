package domain

import "sort"

// StepOrder is the canonical application order of routine steps.
// Steps a rule declares outside this list sort after it,
// alphabetically.
var StepOrder = []string{
	CategoryCleanser,
	CategoryToner,
	CategorySerum,
	CategoryTreatment,
	CategoryMask,
	CategoryMoisturizer,
	CategorySunscreen,
}

var stepRank = func() map[string]int {
	m := make(map[string]int, len(StepOrder))
	for i, s := range StepOrder {
		m[s] = i
	}
	return m
}()

// SortSteps orders step names canonically, in place, and returns the
// slice.
func SortSteps(steps []string) []string {
	sort.SliceStable(steps, func(i, j int) bool {
		ri, iOK := stepRank[steps[i]]
		rj, jOK := stepRank[steps[j]]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return steps[i] < steps[j]
		}
	})
	return steps
}
