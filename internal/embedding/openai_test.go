package embedding

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI is a mock for the OpenAI embeddings endpoint
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	args := m.Called(ctx, conv)
	return args.Get(0).(openai.EmbeddingResponse), args.Error(1)
}

func inputsOf(n int) any {
	return mock.MatchedBy(func(conv openai.EmbeddingRequestConverter) bool {
		req := conv.Convert()
		texts, ok := req.Input.([]string)
		return ok && len(texts) == n
	})
}

func response(vectors ...[]float32) openai.EmbeddingResponse {
	data := make([]openai.Embedding, len(vectors))
	for i, v := range vectors {
		data[i] = openai.Embedding{Index: i, Embedding: v}
	}
	return openai.EmbeddingResponse{Data: data}
}

func TestOpenAIEmbedder_LoadDetectsDimensions(t *testing.T) {
	api := new(MockEmbeddingAPI)
	e := newOpenAIEmbedderWithAPI(api, "", 0)
	ctx := context.Background()

	api.On("CreateEmbeddings", ctx, inputsOf(1)).Return(response([]float32{0.1, 0.2, 0.3}), nil)

	require.NoError(t, e.Load(ctx))
	assert.Equal(t, 3, e.Dimensions())
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
	api.AssertExpectations(t)
}

func TestOpenAIEmbedder_LoadFails(t *testing.T) {
	api := new(MockEmbeddingAPI)
	e := newOpenAIEmbedderWithAPI(api, "text-embedding-3-large", 0)
	ctx := context.Background()

	api.On("CreateEmbeddings", ctx, inputsOf(1)).Return(openai.EmbeddingResponse{}, errors.New("model not found"))

	err := e.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
	assert.Equal(t, 0, e.Dimensions())
}

func TestOpenAIEmbedder_LoadRejectsUnexpectedDimensions(t *testing.T) {
	api := new(MockEmbeddingAPI)
	e := newOpenAIEmbedderWithAPI(api, "", 4)
	ctx := context.Background()

	api.On("CreateEmbeddings", ctx, inputsOf(1)).Return(response([]float32{0.1, 0.2}), nil)

	assert.ErrorIs(t, e.Load(ctx), ErrWrongDimensions)
}

func TestOpenAIEmbedder_EmbedBatchBeforeLoad(t *testing.T) {
	e := newOpenAIEmbedderWithAPI(new(MockEmbeddingAPI), "", 0)

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestOpenAIEmbedder_EmbedBatchOrdersByIndex(t *testing.T) {
	api := new(MockEmbeddingAPI)
	e := newOpenAIEmbedderWithAPI(api, "", 0)
	ctx := context.Background()

	api.On("CreateEmbeddings", ctx, inputsOf(1)).Return(response([]float32{0, 0}), nil).Once()
	require.NoError(t, e.Load(ctx))

	shuffled := openai.EmbeddingResponse{Data: []openai.Embedding{
		{Index: 1, Embedding: []float32{0, 1}},
		{Index: 0, Embedding: []float32{1, 0}},
	}}
	api.On("CreateEmbeddings", ctx, inputsOf(2)).Return(shuffled, nil).Once()

	vectors, err := e.EmbedBatch(ctx, []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	api.AssertExpectations(t)
}

func TestOpenAIEmbedder_EmbedBatchCountMismatch(t *testing.T) {
	api := new(MockEmbeddingAPI)
	e := newOpenAIEmbedderWithAPI(api, "", 0)
	ctx := context.Background()

	api.On("CreateEmbeddings", ctx, inputsOf(1)).Return(response([]float32{0, 0}), nil).Once()
	require.NoError(t, e.Load(ctx))

	api.On("CreateEmbeddings", ctx, inputsOf(2)).Return(response([]float32{1, 0}), nil).Once()

	_, err := e.EmbedBatch(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrNoEmbeddingData)
}

func TestNewOpenAIEmbedder_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	e, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: "http://localhost:11434/v1", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", e.ModelName())
}
