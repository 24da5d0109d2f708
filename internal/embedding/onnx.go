//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a local sentence-embedding model with ONNX Runtime.
// It requires CGO and the onnxruntime shared library. Wrap it with Cached for reuse.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	io         *tensorSet
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
}

// tensorSet holds the session's bound tensors. Run reads the inputs in place and writes out.
type tensorSet struct {
	ids, mask, types *ort.Tensor[int64]
	out              *ort.Tensor[float32]
}

func newTensorSet(maxTokens, dims int) (ts *tensorSet, err error) {
	ts = &tensorSet{}
	defer func() {
		if err != nil {
			ts.destroy()
			ts = nil
		}
	}()
	in := ort.NewShape(1, int64(maxTokens))
	if ts.ids, err = ort.NewEmptyTensor[int64](in); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if ts.mask, err = ort.NewEmptyTensor[int64](in); err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if ts.types, err = ort.NewEmptyTensor[int64](in); err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if ts.out, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dims))); err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	return ts, nil
}

func (ts *tensorSet) inputs() []ort.ArbitraryTensor {
	return []ort.ArbitraryTensor{ts.ids, ts.mask, ts.types}
}

func (ts *tensorSet) load(ids, mask, types []int64) {
	copy(ts.ids.GetData(), ids)
	copy(ts.mask.GetData(), mask)
	copy(ts.types.GetData(), types)
}

func (ts *tensorSet) destroy() {
	if ts == nil {
		return
	}
	if ts.ids != nil {
		_ = ts.ids.Destroy()
	}
	if ts.mask != nil {
		_ = ts.mask.Destroy()
	}
	if ts.types != nil {
		_ = ts.types.Destroy()
	}
	if ts.out != nil {
		_ = ts.out.Destroy()
	}
	ts.ids, ts.mask, ts.types, ts.out = nil, nil, nil, nil
}

// NewONNXEmbedder loads the model at modelPath. The runtime environment is initialized on first use.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: onnx model path not set", models.ErrConfiguration)
	}
	if dimensions <= 0 || maxTokens <= 0 {
		return nil, fmt.Errorf("%w: onnx dimensions and max tokens must be positive", models.ErrConfiguration)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize ONNX runtime: %w", models.ErrEmbedding, err)
		}
	}

	ts, err := newTensorSet(maxTokens, dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputNames, onnxOutputNames,
		ts.inputs(), []ort.ArbitraryTensor{ts.out}, nil)
	if err != nil {
		ts.destroy()
		return nil, fmt.Errorf("%w: failed to create ONNX session for %s: %w", models.ErrEmbedding, modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		io:         ts,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		tokenizer:  &SimpleTokenizer{},
	}, nil
}

// Embed runs inference for text and returns the unit-length embedding.
// A ctx cancelled while waiting for the session is reported before inference starts.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := interrupted(ctx); err != nil {
		return nil, err
	}
	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("%w: onnx embedder closed", models.ErrEmbedding)
	}
	if err := interrupted(ctx); err != nil {
		return nil, err
	}

	e.io.load(ids, mask, types)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: inference failed: %w", models.ErrEmbedding, err)
	}
	return pooledVector(e.io.out.GetData(), e.dimensions)
}

// EmbedBatch embeds texts in order, checking ctx between texts.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and its tensors. It is safe to call more than once.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	e.io.destroy()
	e.io = nil
	return err
}

var _ Embedder = (*ONNXEmbedder)(nil)
