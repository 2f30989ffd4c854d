package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/fedlearn/pkg/errors"
	"github.com/absmach/fedlearn/pkg/storage"
)

func TestCreateGetDelete(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "a", 1))
	assert.ErrorIs(t, s.Create(ctx, "a", 2), errors.ErrEntityExists)
	assert.ErrorIs(t, s.Create(ctx, "", 1), errors.ErrEmptyKey)

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUpdateAndUpsert(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	assert.ErrorIs(t, s.Update(ctx, "a", 1), errors.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, "a", 1))
	require.NoError(t, s.Update(ctx, "a", 2))
	require.NoError(t, s.Upsert(ctx, "a", 3))

	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestListIsStableAndPaged(t *testing.T) {
	s := storage.NewInMemoryStorage()
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, s.Create(ctx, k, k))
	}

	all, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []interface{}{"a", "b", "c"}, all)

	page, total, err := s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []interface{}{"b"}, page)

	empty, total, err := s.List(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Empty(t, empty)
}
