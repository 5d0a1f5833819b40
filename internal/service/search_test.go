package service

import (
	"context"
	"testing"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSearchService_Search_FiltersAndLimits(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	collections := new(MockCollectionRepo)
	chunks := new(MockChunkRepo)
	svc := NewSearchService(embedder, collections, chunks, "")
	ctx := context.Background()

	query := []float32{1, 0}
	candidates := []*domain.QueryResult{
		{ID: "a", Distance: 0.05},
		{ID: "b", Distance: 0.3},
		{ID: "c", Distance: 0.5},
		{ID: "d", Distance: 0.9},
	}

	collections.On("GetByName", ctx, "code_chunks").Return(&domain.Collection{ID: "c1", Name: "code_chunks", Dimensions: 2}, nil)
	embedder.On("EmbedBatch", ctx, []string{"foo function"}).Return([][]float32{query}, nil)
	chunks.On("Query", ctx, "c1", query, DefaultCandidates).Return(candidates, nil)

	results, err := svc.Search(ctx, SearchInput{Text: "foo function", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	chunks.AssertExpectations(t)
}

func TestSearchService_Search_UnknownCollection(t *testing.T) {
	collections := new(MockCollectionRepo)
	svc := NewSearchService(new(MockEmbeddingClient), collections, new(MockChunkRepo), "missing")

	collections.On("GetByName", mock.Anything, "missing").Return(nil, domain.ErrCollectionNotFound)

	_, err := svc.Search(context.Background(), SearchInput{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestSearchService_Search_DimensionMismatch(t *testing.T) {
	embedder := new(MockEmbeddingClient)
	collections := new(MockCollectionRepo)
	chunks := new(MockChunkRepo)
	svc := NewSearchService(embedder, collections, chunks, "")

	collections.On("GetByName", mock.Anything, "code_chunks").Return(&domain.Collection{ID: "c1", Name: "code_chunks", Dimensions: 3}, nil)
	embedder.On("EmbedBatch", mock.Anything, []string{"x"}).Return([][]float32{{1, 0}}, nil)

	_, err := svc.Search(context.Background(), SearchInput{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	chunks.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Get(t *testing.T) {
	collections := new(MockCollectionRepo)
	chunks := new(MockChunkRepo)
	svc := NewSearchService(new(MockEmbeddingClient), collections, chunks, "")
	ctx := context.Background()

	collections.On("GetByName", ctx, "code_chunks").Return(&domain.Collection{ID: "c1", Name: "code_chunks"}, nil)
	chunks.On("Get", ctx, "c1", "a1").Return(&domain.Chunk{ID: "a1", Content: "function foo(){}"}, nil)
	chunks.On("Get", ctx, "c1", "nope").Return(nil, nil)

	chunk, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "function foo(){}", chunk.Content)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
	assert.Equal(t, domain.ErrCodeNotFound, domain.CodeOf(err))
}
