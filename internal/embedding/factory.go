package embedding

import "fmt"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Options selects and configures an embedder.
type Options struct {
	Provider   string
	Model      string
	Dimensions int
	CacheSize  int
	APIKey     string
	BaseURL    string
}

// New builds the configured embedder wrapped in an LRU cache. A negative
// CacheSize disables the cache.
func New(opts Options) (Embedder, error) {
	var inner Embedder
	switch opts.Provider {
	case ProviderOpenAI, "":
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = e
	case ProviderStatic:
		inner = NewStaticEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}

	if opts.CacheSize < 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, opts.CacheSize), nil
}
