package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100, 4)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Hour))
	got, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, ok, _ = s.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStoreKeyMovesBetweenTTLs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100, 4)

	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Hour))
	require.NoError(t, s.Set(ctx, "k", []byte("new"), time.Minute))

	got, ok, _ := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(100, 4)
	for _, k := range []string{"book_object_anon_1", "book_object_user2_1", "book_object_anon_11", "book_list_anon_x", "review_list_anon_x"} {
		require.NoError(t, s.Set(ctx, k, []byte(k), time.Hour))
	}

	require.NoError(t, s.DeletePattern(ctx, ObjectPattern("book", 1)))
	require.NoError(t, s.DeletePattern(ctx, ListPattern("book")))

	for k, want := range map[string]bool{
		"book_object_anon_1":  false,
		"book_object_user2_1": false,
		"book_object_anon_11": true,
		"book_list_anon_x":    false,
		"review_list_anon_x":  true,
	} {
		_, ok, _ := s.Get(ctx, k)
		assert.Equal(t, want, ok, k)
	}
}

func TestMemoryStoreRejectsBadPattern(t *testing.T) {
	s := NewMemoryStore(10, 1)
	assert.Error(t, s.DeletePattern(context.Background(), "book_["))
}
