package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Coerce converts a decoded JSON, YAML or query-string value into the field's
// storage type: int64, float64, string, bool, date string or UTC time.Time.
func (f *Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case "int":
		return coerceInt(v)
	case "float":
		return coerceFloat(v)
	case "string", "text":
		return coerceString(v)
	case "bool":
		return coerceBool(v)
	case "date":
		return coerceDate(v)
	case "datetime":
		return coerceDateTime(v)
	}
	return nil, fmt.Errorf("unsupported field type %q", f.Type)
}

func coerceInt(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("a valid integer is required")
		}
		return coerceInt(f)
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("a valid integer is required")
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("a valid integer is required")
		}
		return i, nil
	}
	return nil, fmt.Errorf("a valid integer is required")
}

func coerceFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("a valid number is required")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("a valid number is required")
		}
		return f, nil
	}
	return nil, fmt.Errorf("a valid number is required")
}

// coerceString accepts scalars only; query literals such as 42 or true are
// restored to their text.
func coerceString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case int:
		return strconv.Itoa(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("not a valid string")
}

func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("must be a valid boolean")
		}
		return parsed, nil
	case json.Number:
		switch b.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	case int64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	}
	return nil, fmt.Errorf("must be a valid boolean")
}

func coerceDate(v any) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format(DateLayout), nil
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(d))
		if err != nil {
			return nil, fmt.Errorf("date has wrong format, use YYYY-MM-DD")
		}
		return t.Format(DateLayout), nil
	}
	return nil, fmt.Errorf("date has wrong format, use YYYY-MM-DD")
}

func coerceDateTime(v any) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", DateLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return nil, fmt.Errorf("datetime has wrong format, use RFC 3339")
}

// prepareConstraints coerces declared choices and default to the field type.
func (f *Field) prepareConstraints() error {
	for i, c := range f.Choices {
		coerced, err := f.Coerce(c)
		if err != nil {
			return fmt.Errorf("field %s: choice %v: %w", f.Name, c, err)
		}
		f.Choices[i] = coerced
	}
	if f.Default != nil {
		coerced, err := f.Coerce(f.Default)
		if err != nil {
			return fmt.Errorf("field %s: default %v: %w", f.Name, f.Default, err)
		}
		f.Default = coerced
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("field %s: min is greater than max", f.Name)
	}
	return nil
}
