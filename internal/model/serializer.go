package model

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	errRequired = validation.NewError("validation_required", "this field is required")
	errNull     = validation.NewError("validation_null", "this field may not be null")
	errReadOnly = validation.NewError("validation_not_updatable", "this field is not allowed to update")
)

// Serialize renders a stored row through the contract: write-only fields are
// dropped and values normalized to their field type.
func (r *Resource) Serialize(rec Record) Record {
	out := make(Record, len(r.Fields))
	for _, f := range r.Fields {
		if f.WriteOnly {
			continue
		}
		v, ok := rec[f.Name]
		if !ok {
			out[f.Name] = nil
			continue
		}
		if coerced, err := f.Coerce(v); err == nil {
			v = coerced
		}
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339Nano)
		}
		out[f.Name] = v
	}
	return out
}

func (r *Resource) SerializeAll(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.Serialize(rec))
	}
	return out
}

// Deserialize validates an inbound payload and returns the values to store.
// Read-only and unknown keys are ignored. Errors are validation.Errors keyed
// by field name.
func (r *Resource) Deserialize(payload map[string]any, mode WriteMode) (Record, error) {
	values := make(Record, len(payload))
	errs := validation.Errors{}

	for _, f := range r.Fields {
		if f.ReadOnly {
			continue
		}
		raw, present := payload[f.Name]
		if !present {
			switch {
			case mode == ModePartial:
			case mode == ModeCreate && f.Default != nil:
				values[f.Name] = f.Default
			case f.Required:
				errs[f.Name] = errRequired
			case mode == ModeCreate && f.Nullable:
				values[f.Name] = nil
			}
			continue
		}
		if raw == nil {
			if !f.Nullable {
				errs[f.Name] = errNull
				continue
			}
			values[f.Name] = nil
			continue
		}
		v, err := f.Coerce(raw)
		if err != nil {
			errs[f.Name] = validation.NewError("validation_invalid_type", err.Error())
			continue
		}
		if err := validation.Validate(v, f.rules()...); err != nil {
			errs[f.Name] = err
			continue
		}
		values[f.Name] = v
	}

	if err := errs.Filter(); err != nil {
		return nil, err
	}
	return values, nil
}

// CheckUpdatable rejects payload fields outside the update allow-list.
func (r *Resource) CheckUpdatable(payload map[string]any) error {
	errs := validation.Errors{}
	for key := range payload {
		if !r.UpdateAllowed(key) {
			errs[key] = errReadOnly
		}
	}
	return errs.Filter()
}

// Stamp sets auto fields: now_add only on create, now on every write.
func (r *Resource) Stamp(values Record, create bool, now time.Time) {
	for _, f := range r.Fields {
		switch {
		case f.Auto == "now", f.Auto == "now_add" && create:
			v, err := f.Coerce(now)
			if err == nil {
				values[f.Name] = v
			}
		}
	}
}

func (f *Field) rules() []validation.Rule {
	var rules []validation.Rule
	if f.Required && (f.Type == "string" || f.Type == "text") {
		rules = append(rules, validation.Required.Error(errRequired.Message()))
	}
	if f.MaxLength > 0 {
		rules = append(rules, validation.RuneLength(0, f.MaxLength))
	}
	if f.Min != nil || f.Max != nil {
		rules = append(rules, validation.By(f.checkBounds))
	}
	if len(f.Choices) > 0 {
		rules = append(rules, validation.In(f.Choices...))
	}
	switch f.Format {
	case "email":
		rules = append(rules, is.Email)
	case "url":
		rules = append(rules, is.URL)
	}
	return rules
}

// checkBounds enforces min/max; ozzo's threshold rules skip zero values.
func (f *Field) checkBounds(value any) error {
	var n float64
	switch v := value.(type) {
	case int64:
		n = float64(v)
	case float64:
		n = v
	default:
		return nil
	}
	if f.Min != nil && n < *f.Min {
		return validation.NewError("validation_min_greater_equal_than_required",
			fmt.Sprintf("ensure this value is greater than or equal to %v", *f.Min))
	}
	if f.Max != nil && n > *f.Max {
		return validation.NewError("validation_max_less_equal_than_required",
			fmt.Sprintf("ensure this value is less than or equal to %v", *f.Max))
	}
	return nil
}
