package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIModel is the model used when none is configured
	DefaultOpenAIModel = openai.SmallEmbedding3
	// MaxInputsPerRequest is the OpenAI limit on inputs per embeddings call
	MaxInputsPerRequest = 2048

	loadProbeText = "codeindex dimension probe"
)

// EmbeddingAPI is the subset of the go-openai client used here.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIConfig configures an OpenAIEmbedder. BaseURL points the client at any
// OpenAI-compatible server, such as a local Ollama.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder embeds through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	api   EmbeddingAPI
	model openai.EmbeddingModel

	mu         sync.RWMutex
	dimensions int
	requested  int
	loaded     bool
}

func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, ErrNoAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return newOpenAIEmbedderWithAPI(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.Dimensions), nil
}

func newOpenAIEmbedderWithAPI(api EmbeddingAPI, model string, dimensions int) *OpenAIEmbedder {
	if model == "" {
		model = string(DefaultOpenAIModel)
	}
	return &OpenAIEmbedder{
		api:       api,
		model:     openai.EmbeddingModel(model),
		requested: dimensions,
	}
}

// Load embeds a probe text to check the model answers and to learn its
// vector dimension.
func (e *OpenAIEmbedder) Load(ctx context.Context) error {
	vectors, err := e.create(ctx, []string{loadProbeText})
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", e.model, err)
	}

	dims := len(vectors[0])
	if e.requested > 0 && dims != e.requested {
		return fmt.Errorf("%w: model %s returned %d, expected %d", ErrWrongDimensions, e.model, dims, e.requested)
	}

	e.mu.Lock()
	e.dimensions = dims
	e.loaded = true
	e.mu.Unlock()
	return nil
}

// EmbedBatch embeds texts, splitting them across requests when they exceed
// MaxInputsPerRequest.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	loaded, dims := e.loaded, e.dimensions
	e.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxInputsPerRequest {
		end := min(start+MaxInputsPerRequest, len(texts))
		vectors, err := e.create(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for i, v := range vectors {
			if len(v) != dims {
				return nil, fmt.Errorf("%w: input %d has %d, expected %d", ErrWrongDimensions, start+i, len(v), dims)
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (e *OpenAIEmbedder) create(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	}
	if e.requested > 0 {
		req.Dimensions = e.requested
	}

	resp, err := e.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrNoEmbeddingData, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimensions
}

func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}
