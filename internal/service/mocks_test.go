package service

import (
	"context"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient mocks the embedding model
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockCollectionRepo mocks the collection repository
type MockCollectionRepo struct {
	mock.Mock
}

func (m *MockCollectionRepo) GetOrCreate(ctx context.Context, name string, dimensions int, metadata map[string]any) (*domain.Collection, error) {
	args := m.Called(ctx, name, dimensions, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionRepo) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionRepo) List(ctx context.Context) ([]*domain.Collection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Collection), args.Error(1)
}

// MockChunkRepo mocks the chunk repository
type MockChunkRepo struct {
	mock.Mock
}

func (m *MockChunkRepo) Upsert(ctx context.Context, collectionID string, records []domain.ChunkRecord) error {
	return m.Called(ctx, collectionID, records).Error(0)
}

func (m *MockChunkRepo) Get(ctx context.Context, collectionID, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, collectionID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepo) Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]*domain.QueryResult, error) {
	args := m.Called(ctx, collectionID, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueryResult), args.Error(1)
}
