package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/codeindex/internal/domain"
)

// Query defaults: fetch a wide candidate set, keep the close ones, show a few.
const (
	DefaultCandidates  = 50
	DefaultMaxDistance = 0.65
	DefaultTopK        = 5
)

// SearchInput holds the parameters for a similarity query.
type SearchInput struct {
	Text        string
	Candidates  int
	MaxDistance float64
	Limit       int
}

// SearchService answers ad hoc similarity queries and chunk lookups.
type SearchService struct {
	embedder    EmbeddingClient
	collections CollectionRepositoryInterface
	chunks      ChunkRepositoryInterface
	collection  string
}

func NewSearchService(
	embedder EmbeddingClient,
	collections CollectionRepositoryInterface,
	chunks ChunkRepositoryInterface,
	collection string,
) *SearchService {
	if collection == "" {
		collection = domain.DefaultCollectionName
	}
	return &SearchService{
		embedder:    embedder,
		collections: collections,
		chunks:      chunks,
		collection:  collection,
	}
}

// Search returns the stored chunks closest to input.Text, nearest first.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]*domain.QueryResult, error) {
	if input.Candidates <= 0 {
		input.Candidates = DefaultCandidates
	}
	if input.MaxDistance <= 0 {
		input.MaxDistance = DefaultMaxDistance
	}
	if input.Limit <= 0 {
		input.Limit = DefaultTopK
	}

	collection, err := s.collections.GetByName(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{input.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, domain.ErrEmbeddingCount
	}
	if len(vectors[0]) != collection.Dimensions {
		return nil, domain.Wrap(domain.ErrDimensionMismatch,
			fmt.Errorf("collection %s stores %d, model produced %d", collection.Name, collection.Dimensions, len(vectors[0])))
	}

	candidates, err := s.chunks.Query(ctx, collection.ID, vectors[0], input.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	return domain.FilterByDistance(candidates, input.MaxDistance, input.Limit), nil
}

// Get returns the stored chunk with the given id.
func (s *SearchService) Get(ctx context.Context, id string) (*domain.Chunk, error) {
	collection, err := s.collections.GetByName(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	chunk, err := s.chunks.Get(ctx, collection.ID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	if chunk == nil {
		return nil, domain.ErrChunkNotFound
	}
	return chunk, nil
}
