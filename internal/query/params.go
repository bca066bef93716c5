// Package query turns a request's query string into filters, excludes and a
// pagination window.
package query

import (
	"bytes"
	"encoding/json"
	"net/url"
	"slices"
	"strings"
)

const ExcludePrefix = "exclude__"

// Reserved keys are routed to pagination and never used as data filters.
var Reserved = []string{"page", "top", "bottom", "order_by"}

type Params struct {
	Filters  map[string]any
	Excludes map[string]any
	Paging   map[string]string // raw values of the reserved keys
}

// Parse splits values into filters and excludes. Keys outside allowList are
// dropped from both; "*" allows every key. When a key repeats, the last
// value wins.
func Parse(values url.Values, allowList []string) Params {
	p := Params{
		Filters:  map[string]any{},
		Excludes: map[string]any{},
		Paging:   map[string]string{},
	}
	wildcard := slices.Contains(allowList, "*")
	allowed := func(key string) bool {
		return wildcard || slices.Contains(allowList, key)
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]

		if slices.Contains(Reserved, key) {
			p.Paging[key] = strings.TrimSpace(raw)
			continue
		}
		if field, ok := strings.CutPrefix(key, ExcludePrefix); ok {
			if field != "" && allowed(field) {
				p.Excludes[field] = ParseValue(raw)
			}
			continue
		}
		if allowed(key) {
			p.Filters[key] = ParseValue(raw)
		}
	}
	return p
}

// ParseValue splits comma separated values into a list, collapsing a single
// token to a scalar and no tokens to nil. Anything else is decoded as a JSON
// literal, falling back to the raw string.
func ParseValue(raw string) any {
	if strings.Contains(raw, ",") {
		var tokens []any
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tokens = append(tokens, part)
			}
		}
		switch len(tokens) {
		case 0:
			return nil
		case 1:
			return tokens[0]
		}
		return tokens
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}
