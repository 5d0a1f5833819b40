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

func TestChunkRepository_Upsert_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	collection, err := NewCollectionRepository(pool).GetOrCreate(ctx, domain.DefaultCollectionName, 3, nil)
	require.NoError(t, err)
	repo := NewChunkRepository(pool)

	require.NoError(t, repo.Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "a1", Content: "X", Metadata: map[string]any{"lang": "go"}}, Embedding: []float32{1, 0, 0}},
	}))
	require.NoError(t, repo.Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "a1", Content: "Y", Metadata: map[string]any{"lang": "js"}}, Embedding: []float32{0, 1, 0}},
	}))

	count, err := repo.Count(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := repo.Get(ctx, collection.ID, "a1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Y", stored.Content)
	assert.Equal(t, "js", stored.Metadata["lang"])
}

func TestChunkRepository_Upsert_DuplicateIDsLastWins(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	collection, err := NewCollectionRepository(pool).GetOrCreate(ctx, domain.DefaultCollectionName, 3, nil)
	require.NoError(t, err)
	repo := NewChunkRepository(pool)

	require.NoError(t, repo.Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "a1", Content: "first"}, Embedding: []float32{1, 0, 0}},
		{Chunk: domain.Chunk{ID: "a1", Content: "second"}, Embedding: []float32{0, 1, 0}},
	}))

	stored, err := repo.Get(ctx, collection.ID, "a1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "second", stored.Content)
}

func TestChunkRepository_Upsert_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	collection, err := NewCollectionRepository(pool).GetOrCreate(ctx, domain.DefaultCollectionName, 3, nil)
	require.NoError(t, err)
	repo := NewChunkRepository(pool)

	err = repo.Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "ok", Content: "fine"}, Embedding: []float32{1, 0, 0}},
		{Chunk: domain.Chunk{ID: "bad", Content: "no vector"}, Embedding: []float32{}},
	})
	require.Error(t, err)

	count, err := repo.Count(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRepositories_WithOuterTransaction(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	collection, err := NewCollectionRepositoryWithTx(tx).GetOrCreate(ctx, "scratch", 3, nil)
	require.NoError(t, err)
	require.NoError(t, NewChunkRepositoryWithTx(tx).Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "a1", Content: "X"}, Embedding: []float32{1, 0, 0}},
	}))

	count, err := NewChunkRepositoryWithTx(tx).Count(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, tx.Rollback(ctx))

	_, err = NewCollectionRepository(pool).GetByName(ctx, "scratch")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestChunkRepository_Query(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	collection, err := NewCollectionRepository(pool).GetOrCreate(ctx, domain.DefaultCollectionName, 3, nil)
	require.NoError(t, err)
	repo := NewChunkRepository(pool)

	require.NoError(t, repo.Upsert(ctx, collection.ID, []domain.ChunkRecord{
		{Chunk: domain.Chunk{ID: "near", Content: "near"}, Embedding: []float32{1, 0.1, 0}},
		{Chunk: domain.Chunk{ID: "far", Content: "far"}, Embedding: []float32{0, 0, 1}},
		{Chunk: domain.Chunk{ID: "exact", Content: "exact"}, Embedding: []float32{1, 0, 0}},
	}))

	results, err := repo.Query(ctx, collection.ID, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.Equal(t, "near", results[1].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestStore_Heartbeat(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	assert.NoError(t, NewStore(pool).Heartbeat(ctx))
}
