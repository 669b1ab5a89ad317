package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storyfeed/storyfeed/pkg/model"
)

// matches reports whether the item satisfies every filter.
func matches(fields map[string]interface{}, filters model.Filters) (bool, error) {
	for _, f := range filters {
		if !f.Validate() {
			return false, fmt.Errorf("%w: filter on %q with op %q", model.ErrInvalidArgument, f.Field, f.Op)
		}
		ok, err := matchOne(fields[f.Field], f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(actual interface{}, f model.Filter) (bool, error) {
	switch f.Op {
	case model.OpMatch:
		pattern, ok := f.Value.(string)
		if !ok {
			return false, fmt.Errorf("%w: match on %q needs a string", model.ErrInvalidArgument, f.Field)
		}
		s, ok := actual.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(pattern)), nil

	case model.OpIn:
		candidates, err := toList(f.Value)
		if err != nil {
			return false, fmt.Errorf("%w: in on %q: %v", model.ErrInvalidArgument, f.Field, err)
		}
		// Array fields match when any element is a candidate.
		if elems, ok := actual.([]string); ok {
			for _, e := range elems {
				if containsValue(candidates, e) {
					return true, nil
				}
			}
			return false, nil
		}
		return actual != nil && containsValue(candidates, actual), nil

	case model.OpEq:
		if elems, ok := actual.([]string); ok {
			return containsValue(toInterfaces(elems), f.Value), nil
		}
		return actual != nil && compare(actual, f.Value) == 0, nil

	case model.OpNe:
		return actual == nil || compare(actual, f.Value) != 0, nil
	}

	if actual == nil {
		return false, nil
	}
	c := compare(actual, f.Value)
	if c == incomparable {
		return false, nil
	}
	switch f.Op {
	case model.OpGt:
		return c > 0, nil
	case model.OpGte:
		return c >= 0, nil
	case model.OpLt:
		return c < 0, nil
	case model.OpLte:
		return c <= 0, nil
	}
	return false, nil
}

const incomparable = 2

// compare orders two scalars of the same kind. Mixed integer and float
// values compare numerically.
func compare(a, b interface{}) int {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return incomparable
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, ok := a.(string)
	if !ok {
		return incomparable
	}
	bs, ok := b.(string)
	if !ok {
		return incomparable
	}
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toList(v interface{}) ([]interface{}, error) {
	switch l := v.(type) {
	case []string:
		return toInterfaces(l), nil
	case []interface{}:
		return l, nil
	case []int64:
		out := make([]interface{}, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported list type %T", v)
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, c := range list {
		if compare(c, v) == 0 {
			return true
		}
	}
	return false
}

// sortEntries orders entries by the given keys, falling back to insertion
// order.
func sortEntries(entries []*entry, orders []model.Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		for _, o := range orders {
			c := compare(entries[i].fields[o.Field], entries[j].fields[o.Field])
			if c == 0 || c == incomparable {
				continue
			}
			if o.Descending() {
				return c > 0
			}
			return c < 0
		}
		return entries[i].seq < entries[j].seq
	})
}
