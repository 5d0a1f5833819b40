// Package embedding turns chunk text into vectors. The daemon treats the model
// as opaque: it loads it once, then embeds each request in one batch call.
package embedding

import (
	"context"
	"errors"
)

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	// Load prepares the model and fixes Dimensions. It is called once before
	// the daemon accepts requests.
	Load(ctx context.Context) error
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

var (
	// ErrNoAPIKey is returned when the OpenAI provider has neither a key nor a base URL
	ErrNoAPIKey = errors.New("openai api key not set")
	// ErrNoEmbeddingData is returned when the API answers without vectors
	ErrNoEmbeddingData = errors.New("no embedding data returned")
	// ErrWrongDimensions is returned when a vector does not match the loaded dimension
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNotLoaded is returned when embedding before Load
	ErrNotLoaded = errors.New("embedding model not loaded")
)
