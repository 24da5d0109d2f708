package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Tensor names of the sentence-embedding graph.
var (
	onnxInputNames  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputNames = []string{"output"}
)

// interrupted reports a cancelled or expired ctx as an embedding failure.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	return nil
}

// pooledVector copies the first dims values of a model output and scales them to unit length.
func pooledVector(output []float32, dims int) ([]float32, error) {
	if dims <= 0 || len(output) < dims {
		return nil, fmt.Errorf("%w: model produced %d values, want %d", models.ErrEmbedding, len(output), dims)
	}
	vec := make([]float32, dims)
	copy(vec, output[:dims])
	utils.NormalizeL2(vec)
	return vec, nil
}

// embedEach embeds texts one at a time, stopping as soon as ctx is done.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := interrupted(ctx); err != nil {
			return nil, err
		}
		vec, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
