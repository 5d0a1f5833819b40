//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewCollectionRepository(pool)
	meta := map[string]any{"description": domain.DefaultCollectionDescription}

	created, err := repo.GetOrCreate(ctx, domain.DefaultCollectionName, 3, meta)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCollectionName, created.Name)
	assert.Equal(t, 3, created.Dimensions)
	assert.Equal(t, domain.DefaultCollectionDescription, created.Metadata["description"])
	assert.NotEmpty(t, created.ID)

	again, err := repo.GetOrCreate(ctx, domain.DefaultCollectionName, 8, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, 3, again.Dimensions)
}

func TestCollectionRepository_GetByName_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewCollectionRepository(pool)

	_, err := repo.GetByName(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestCollectionRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	collections := NewCollectionRepository(pool)
	chunks := NewChunkRepository(pool)

	a, err := collections.GetOrCreate(ctx, "a_chunks", 3, nil)
	require.NoError(t, err)
	_, err = collections.GetOrCreate(ctx, "b_chunks", 3, nil)
	require.NoError(t, err)

	require.NoError(t, chunks.Upsert(ctx, a.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "x", Content: "x"}, Embedding: []float32{1, 0, 0}},
		{Chunk: domain.Chunk{ID: "y", Content: "y"}, Embedding: []float32{0, 1, 0}},
	}))

	list, err := collections.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a_chunks", list[0].Name)
	assert.Equal(t, 2, list[0].ChunkCount)
	assert.Equal(t, "b_chunks", list[1].Name)
	assert.Equal(t, 0, list[1].ChunkCount)
}
