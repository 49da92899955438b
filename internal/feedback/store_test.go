package feedback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, Entry{Question: "waiting after meat", Helpful: true, Comment: "clear"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.Add(ctx, Entry{Question: "kashering a microwave", Helpful: false})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "kashering a microwave", entries[0].Question)
	assert.False(t, entries[0].Helpful)
	assert.Equal(t, "waiting after meat", entries[1].Question)
	assert.True(t, entries[1].Helpful)
}

func TestRecent_LimitClamped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Add(ctx, Entry{Question: "q"})
		require.NoError(t, err)
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.Recent(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "non-positive limit falls back to default")
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
