// Package embedding provides text embedding via OpenAI, ONNX, a deterministic mock, and an LRU cache.
package embedding

import "context"

// Embedder produces vector embeddings for text. EmbedBatch preserves input order.
// Provider failures wrap models.ErrEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
	ProviderMock   = "mock"
)
