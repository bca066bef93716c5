package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const anonScope = "anon"

// Scope is the identity part of a key: "anon" or "user{id}".
func Scope(userID int64, authenticated bool) string {
	if !authenticated {
		return anonScope
	}
	return "user" + strconv.FormatInt(userID, 10)
}

func ObjectKey(prefix, scope string, pk any) string {
	return fmt.Sprintf("%s_object_%s_%v", prefix, scope, pk)
}

// ObjectPattern matches the object entry for pk in every scope.
func ObjectPattern(prefix string, pk any) string {
	return fmt.Sprintf("%s_object_*_%v", prefix, pk)
}

// ListKey is {prefix}_list_{scope}_{h(filters)}_{h(excludes)}_{top}_{bottom}_{h(order)}.
func ListKey(prefix, scope string, filters, excludes any, top, bottom int, order any) (string, error) {
	hf, err := Hash(filters)
	if err != nil {
		return "", err
	}
	he, err := Hash(excludes)
	if err != nil {
		return "", err
	}
	ho, err := Hash(order)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_list_%s_%x_%x_%d_%d_%x", prefix, scope, hf, he, top, bottom, ho), nil
}

func ListPattern(prefix string) string {
	return prefix + "_list_*"
}

// Hash is xxhash over the canonical JSON encoding of value.
func Hash(value any) (uint64, error) {
	data, err := canonicalJSON(value)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	case json.Number:
		b.WriteString(v.String())
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := json.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		// structs and typed slices have a stable field order already
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
