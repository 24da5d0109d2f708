package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPooledVector(t *testing.T) {
	vec, err := pooledVector([]float32{3, 4, 99}, 2)
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestPooledVector_shortOutput(t *testing.T) {
	_, err := pooledVector([]float32{1}, 4)
	assert.ErrorIs(t, err, models.ErrEmbedding)
}

func TestEmbedEach_stopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	embed := func(context.Context, string) ([]float32, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return []float32{1}, nil
	}

	_, err := embedEach(ctx, []string{"a", "b", "c", "d"}, embed)
	assert.ErrorIs(t, err, models.ErrEmbedding)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestEmbedEach_wrapsIndex(t *testing.T) {
	boom := errors.New("boom")
	embed := func(_ context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, boom
		}
		return []float32{1}, nil
	}

	_, err := embedEach(context.Background(), []string{"ok", "bad"}, embed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "text 1")

	out, err := embedEach(context.Background(), []string{"ok", "ok"}, embed)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestInterrupted(t *testing.T) {
	assert.NoError(t, interrupted(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := interrupted(ctx)
	assert.ErrorIs(t, err, models.ErrEmbedding)
	assert.ErrorIs(t, err, context.Canceled)
}
