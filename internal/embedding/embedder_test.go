package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	a, err := e.Embed(ctx, "same text")
	require.NoError(t, err)
	b, _ := e.Embed(ctx, "same text")
	c, _ := e.Embed(ctx, "other text")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

	batch, err := e.EmbedBatch(ctx, []string{"same text", "other text"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{a, c}, batch)
	assert.Equal(t, 384, NewMockEmbedder(0).Dimensions())
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = ProviderMock
	cfg.Embedding.Dimensions = 16
	e, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())
	_, isCached := e.(*CachedEmbedder)
	assert.True(t, isCached)

	cfg.Embedding.Provider = ProviderOpenAI
	cfg.OpenAI.APIKey = "k"
	e, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Embedding.Dimensions, e.Dimensions())

	cfg.Embedding.Provider = "word2vec"
	_, err = New(cfg)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNew_onnxRequiresModelPath(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = ProviderONNX
	cfg.Embedding.ModelPath = ""
	_, err := New(cfg)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
