package cache

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	assert.Equal(t, "anon", Scope(0, false))
	assert.Equal(t, "anon", Scope(7, false))
	assert.Equal(t, "user7", Scope(7, true))
}

func TestObjectKeyAndPattern(t *testing.T) {
	assert.Equal(t, "book_object_user3_42", ObjectKey("book", "user3", int64(42)))
	assert.Equal(t, "book_object_*_42", ObjectPattern("book", "42"))
}

func TestListKeyIsStableAndSensitive(t *testing.T) {
	f1 := map[string]any{"author": "Herbert", "status": []any{"a", "b"}}
	f2 := map[string]any{"status": []any{"a", "b"}, "author": "Herbert"}

	k1, err := ListKey("book", "anon", f1, nil, 0, 20, "-title")
	require.NoError(t, err)
	k2, err := ListKey("book", "anon", f2, nil, 0, 20, "-title")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "map order must not change the key")
	assert.True(t, strings.HasPrefix(k1, "book_list_anon_"))
	assert.Contains(t, k1, "_0_20_")

	others := []struct {
		scope   string
		filters any
		exclude any
		top     int
		order   any
	}{
		{"user1", f1, nil, 0, "-title"},
		{"anon", map[string]any{"author": "Austen"}, nil, 0, "-title"},
		{"anon", f1, map[string]any{"author": "Herbert"}, 0, "-title"},
		{"anon", f1, nil, 20, "-title"},
		{"anon", f1, nil, 0, "title"},
	}
	for _, o := range others {
		k, err := ListKey("book", o.scope, o.filters, o.exclude, o.top, o.top+20, o.order)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k, "key must change for %+v", o)
	}
}

func TestHashCanonicalNumbers(t *testing.T) {
	h1, err := Hash(map[string]any{"n": json.Number("3")})
	require.NoError(t, err)
	h2, err := Hash(map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
