package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/domain/resume"
)

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := resume.Bookmark{Token: "Bedtime", Index: 3, Offset: 42500 * time.Millisecond, Shuffled: true, Seed: -77}
	require.NoError(t, s.Save(ctx, want))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	// A second save replaces the first.
	next := resume.Bookmark{Token: "Morning", Index: 0, Offset: time.Second}
	require.NoError(t, s.Save(ctx, next))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, *got)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "tagbox.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, resume.Bookmark{Token: "Bedtime", Index: 2, Offset: 5 * time.Second}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bedtime", got.Token)
	assert.Equal(t, 2, got.Index)
	assert.Equal(t, 5*time.Second, got.Offset)
	assert.False(t, got.Shuffled)
}
