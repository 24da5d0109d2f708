package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// MaxOpenAIBatch is the largest number of inputs sent in one embeddings request.
	MaxOpenAIBatch = 100
	// DefaultOpenAITimeout bounds a single embeddings request.
	DefaultOpenAITimeout = 30 * time.Second
)

// OpenAIEmbedder uses the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

type openAIOptions struct {
	baseURL    string
	maxRetries int
	timeout    time.Duration
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*openAIOptions)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = u }
}

// WithMaxRetries sets the client's retry count for transient failures.
func WithMaxRetries(n int) OpenAIOption {
	return func(o *openAIOptions) { o.maxRetries = n }
}

// WithTimeout bounds each embeddings request.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *openAIOptions) { o.timeout = d }
}

// NewOpenAIEmbedder creates an embedder for model producing vectors of the given dimension.
func NewOpenAIEmbedder(apiKey, model string, dimensions int, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", models.ErrConfiguration)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrConfiguration)
	}
	o := openAIOptions{maxRetries: 2, timeout: DefaultOpenAITimeout}
	for _, opt := range opts {
		opt(&o)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		dimensions: dimensions,
		timeout:    o.timeout,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in groups of MaxOpenAIBatch, preserving order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxOpenAIBatch {
		end := start + MaxOpenAIBatch
		if end > len(texts) {
			end = len(texts)
		}
		group, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, group...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}
	// Only the text-embedding-3 family accepts a dimensions parameter.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate embeddings: %w", models.ErrEmbedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", models.ErrEmbedding, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, data := range resp.Data {
		i := int(data.Index)
		if i < 0 || i >= len(out) || out[i] != nil {
			return nil, fmt.Errorf("%w: unexpected embedding index %d", models.ErrEmbedding, data.Index)
		}
		if len(data.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: dimension mismatch: got %d, expected %d",
				models.ErrEmbedding, len(data.Embedding), e.dimensions)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
