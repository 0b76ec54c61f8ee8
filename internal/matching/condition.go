package matching

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// Condition is one entry of a rule's condition map. The three kinds
// are parsed from the rule's JSON spec: a scalar is Equals, an array
// is OneOf, an object with gte/lte bounds is Range. Evaluation is a
// direct field lookup; no cross-rule state.
type Condition interface {
	Holds(v any) bool
}

type Equals struct {
	Value any
}

func (c Equals) Holds(v any) bool {
	return anyElement(v, func(e any) bool {
		return normValue(e) == normValue(c.Value)
	})
}

type OneOf struct {
	Values []any
}

func (c OneOf) Holds(v any) bool {
	return anyElement(v, func(e any) bool {
		n := normValue(e)
		for _, w := range c.Values {
			if n == normValue(w) {
				return true
			}
		}
		return false
	})
}

type Range struct {
	GTE *float64
	LTE *float64
}

func (c Range) Holds(v any) bool {
	f, ok := asFloat(v)
	if !ok {
		return false
	}
	if c.GTE != nil && f < *c.GTE {
		return false
	}
	if c.LTE != nil && f > *c.LTE {
		return false
	}
	return true
}

// ParseConditions decodes a rule's condition map. Any malformed entry
// fails the whole map; the matcher skips such rules so one bad rule
// cannot block matching for everyone.
func ParseConditions(raw datatypes.JSON) (map[string]Condition, error) {
	if len(raw) == 0 {
		return map[string]Condition{}, nil
	}
	var specs map[string]any
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	out := make(map[string]Condition, len(specs))
	for field, spec := range specs {
		cond, err := parseCondition(spec)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", field, err)
		}
		out[field] = cond
	}
	return out, nil
}

func parseCondition(spec any) (Condition, error) {
	switch v := spec.(type) {
	case nil:
		return nil, fmt.Errorf("null condition")
	case string, bool, float64:
		return Equals{Value: v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty set condition")
		}
		return OneOf{Values: v}, nil
	case map[string]any:
		var r Range
		for key, bound := range v {
			f, ok := asFloat(bound)
			if !ok {
				return nil, fmt.Errorf("non-numeric bound %q", key)
			}
			switch key {
			case "gte":
				g := f
				r.GTE = &g
			case "lte":
				l := f
				r.LTE = &l
			default:
				return nil, fmt.Errorf("unknown range key %q", key)
			}
		}
		if r.GTE == nil && r.LTE == nil {
			return nil, fmt.Errorf("range without bounds")
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported condition type %T", spec)
	}
}

// anyElement applies pred to v, or to each element when the profile
// field is itself a list (risk flags). A list field satisfies a
// condition when any element does.
func anyElement(v any, pred func(any) bool) bool {
	switch list := v.(type) {
	case []any:
		for _, e := range list {
			if pred(e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range list {
			if pred(e) {
				return true
			}
		}
		return false
	default:
		return pred(v)
	}
}

func normValue(v any) any {
	if f, ok := asFloat(v); ok {
		return f
	}
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
