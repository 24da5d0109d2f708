package embedding

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// New creates the embedder selected by cfg.Embedding.Provider, wrapped in an LRU cache
// when cfg.Embedding.CacheSize > 0.
func New(cfg *config.Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Embedding.Provider {
	case ProviderOpenAI, "":
		e, err = NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions,
			WithBaseURL(cfg.OpenAI.BaseURL),
			WithMaxRetries(cfg.OpenAI.MaxRetries),
			WithTimeout(cfg.Embedding.Timeout),
		)
	case ProviderONNX:
		e, err = NewONNXEmbedder(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	case ProviderMock:
		e = NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q (supported: openai, onnx, mock)",
			models.ErrConfiguration, cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Cached(e, cfg.Embedding.CacheSize), nil
}
