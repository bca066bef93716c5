package model

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// FieldError reports a filter naming an unknown field or carrying a value of
// the wrong type.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid filter on %q: %s", e.Field, e.Reason)
}

// BuildCriteria turns parsed filters and excludes into typed predicates.
// Keys are processed in sorted order so equal inputs give equal criteria.
func (r *Resource) BuildCriteria(filters, excludes map[string]any) (Criteria, error) {
	var c Criteria
	var err error
	if c.Filters, err = r.predicates(filters); err != nil {
		return Criteria{}, err
	}
	if c.Excludes, err = r.predicates(excludes); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func (r *Resource) predicates(in map[string]any) ([]Predicate, error) {
	if len(in) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		f := r.Field(key)
		if f == nil || f.WriteOnly {
			return nil, &FieldError{Field: key, Reason: "unknown field"}
		}
		v, err := coerceFilterValue(f, in[key])
		if err != nil {
			return nil, &FieldError{Field: key, Reason: err.Error()}
		}
		out = append(out, Predicate{Field: key, Value: v})
	}
	return out, nil
}

func coerceFilterValue(f *Field, v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		if strs, isStrs := v.([]string); isStrs {
			list = make([]any, len(strs))
			for i, s := range strs {
				list[i] = s
			}
			ok = true
		}
	}
	if !ok {
		if _, isMap := v.(map[string]any); isMap {
			return nil, fmt.Errorf("objects are not valid filter values")
		}
		return f.Coerce(v)
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		c, err := f.Coerce(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// And returns a copy of c narrowed by extra filter predicates.
func (c Criteria) And(preds ...Predicate) Criteria {
	out := Criteria{
		Filters:  make([]Predicate, 0, len(c.Filters)+len(preds)),
		Excludes: c.Excludes,
	}
	out.Filters = append(out.Filters, c.Filters...)
	out.Filters = append(out.Filters, preds...)
	return out
}

// Has reports whether a filter on field is present.
func (c Criteria) Has(field string) bool {
	for _, p := range c.Filters {
		if p.Field == field {
			return true
		}
	}
	return false
}

// Match evaluates the criteria against a stored row.
func (c Criteria) Match(rec Record) bool {
	for _, p := range c.Filters {
		if !p.Match(rec) {
			return false
		}
	}
	if len(c.Excludes) == 0 {
		return true
	}
	for _, p := range c.Excludes {
		if !p.Match(rec) {
			return true
		}
	}
	return false
}

func (p Predicate) Match(rec Record) bool {
	got := rec[p.Field]
	if list, ok := p.Value.([]any); ok {
		for _, want := range list {
			if valuesEqual(got, want) {
				return true
			}
		}
		return false
	}
	return valuesEqual(got, p.Value)
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
	}
	return reflect.DeepEqual(a, b)
}
