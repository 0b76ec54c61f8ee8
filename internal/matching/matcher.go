package matching

import (
	"encoding/json"
	"sort"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
)

// Fields is the flat field view of a profile that rule conditions are
// evaluated against.
type Fields map[string]any

// ProfileFields flattens a profile for condition lookup. Risk flags
// stay a list (set-membership conditions match any element); medical
// markers are merged under their own keys.
func ProfileFields(p *domain.SkinProfile) Fields {
	f := Fields{
		"skin_type":   p.SkinType,
		"sensitivity": p.Sensitivity,
		"acne_level":  p.AcneLevel,
		"dehydration": p.Dehydration,
	}
	if len(p.RiskFlags) > 0 {
		var flags []any
		if err := json.Unmarshal(p.RiskFlags, &flags); err == nil {
			f["risk_flags"] = flags
		}
	}
	if len(p.MedicalMarkers) > 0 {
		var markers map[string]any
		if err := json.Unmarshal(p.MedicalMarkers, &markers); err == nil {
			for k, v := range markers {
				if _, taken := f[k]; !taken {
					f[k] = v
				}
			}
		}
	}
	return f
}

// Match returns the first active rule whose every condition holds,
// evaluating in descending priority (ties keep input order, which the
// repo layer pins to creation order). No match is a valid outcome, not
// an error. Rules with malformed condition specs are skipped.
func Match(fields Fields, rules []*domain.Rule, log *logger.Logger) *domain.Rule {
	ordered := make([]*domain.Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for _, rule := range ordered {
		conds, err := ParseConditions(rule.Conditions)
		if err != nil {
			if log != nil {
				log.Warn("skipping rule with malformed conditions", "rule", rule.Name, "error", err)
			}
			continue
		}
		if holdsAll(fields, conds) {
			return rule
		}
	}
	return nil
}

func holdsAll(fields Fields, conds map[string]Condition) bool {
	for field, cond := range conds {
		v, ok := fields[field]
		if !ok {
			return false
		}
		if !cond.Holds(v) {
			return false
		}
	}
	return true
}
