package service

import (
	"context"

	"github.com/cloo-solutions/codeindex/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CollectionRepositoryInterface defines the collection persistence operations
type CollectionRepositoryInterface interface {
	GetOrCreate(ctx context.Context, name string, dimensions int, metadata map[string]any) (*domain.Collection, error)
	GetByName(ctx context.Context, name string) (*domain.Collection, error)
	List(ctx context.Context) ([]*domain.Collection, error)
}

// ChunkRepositoryInterface defines the chunk persistence operations
type ChunkRepositoryInterface interface {
	Upsert(ctx context.Context, collectionID string, records []domain.ChunkRecord) error
	Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]*domain.QueryResult, error)
	Get(ctx context.Context, collectionID, id string) (*domain.Chunk, error)
}
