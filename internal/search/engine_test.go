package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// keyedEmbedder returns fixed vectors per text and a zero-similarity vector otherwise.
type keyedEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (k *keyedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	k.calls = append(k.calls, text)
	if k.err != nil {
		return nil, k.err
	}
	if v, ok := k.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (k *keyedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := k.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (k *keyedEmbedder) Dimensions() int { return 3 }
func (k *keyedEmbedder) Close() error    { return nil }

type stubStages struct {
	enhanced     string
	enhanceErr   error
	analysis     string
	analyzeErr   error
	analyzeCalls int
	analyzedWith string
	analyzedN    int
}

func (s *stubStages) Enhance(_ context.Context, query string) (string, error) {
	if s.enhanceErr != nil {
		return "", s.enhanceErr
	}
	return s.enhanced, nil
}

func (s *stubStages) Analyze(_ context.Context, chunks []models.SimilarityMatch, query string) (string, error) {
	s.analyzeCalls++
	s.analyzedWith = query
	s.analyzedN = len(chunks)
	if s.analyzeErr != nil {
		return "", s.analyzeErr
	}
	return s.analysis, nil
}

var retrieval = &config.RetrievalConfig{SimilarityThreshold: 0.7, DefaultLimit: 5, MaxLimit: 20}

func seededStore(t *testing.T) *vector.MemoryStore {
	t.Helper()
	store, err := vector.NewMemoryStore(3)
	require.NoError(t, err)
	ctx := context.Background()
	rows := []struct {
		content string
		vec     []float32
	}{
		{"close", []float32{1, 0, 0}},
		{"near", []float32{0.9, 0.2, 0}},
		{"far", []float32{0, 1, 0}},
	}
	for i, r := range rows {
		require.NoError(t, store.Insert(ctx, &models.DocumentChunk{
			ID: r.content, SourceURL: "https://example.com/a.pdf", Content: r.content, Index: i, Embedding: r.vec,
		}))
	}
	return store
}

func TestEngine_Query_answered(t *testing.T) {
	emb := &keyedEmbedder{vectors: map[string][]float32{"enhanced question": {1, 0, 0}}}
	stages := &stubStages{enhanced: "enhanced question", analysis: "the answer"}
	engine := NewEngine(emb, seededStore(t), stages, retrieval, WithLogger(zap.NewNop()))

	res, err := engine.Query(context.Background(), "question", 5)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeAnswered, res.Outcome)
	assert.Equal(t, "enhanced question", res.EnhancedQuery)
	assert.Equal(t, []string{"enhanced question"}, emb.calls)
	assert.Equal(t, "question", stages.analyzedWith)
	assert.Equal(t, 2, stages.analyzedN)
	assert.Equal(t, "the answer", res.Analysis)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, "close", res.Matches[0].Content)
	assert.Equal(t, "near", res.Matches[1].Content)
	assert.GreaterOrEqual(t, res.Matches[0].Similarity, res.Matches[1].Similarity)
	for _, m := range res.Matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.7)
		assert.Equal(t, "the answer", m.Metadata[models.MetaAnalysis])
	}
}

func TestEngine_Query_limit(t *testing.T) {
	emb := &keyedEmbedder{vectors: map[string][]float32{"e": {1, 0, 0}}}
	stages := &stubStages{enhanced: "e", analysis: "a"}
	engine := NewEngine(emb, seededStore(t), stages, retrieval)

	res, err := engine.Query(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "close", res.Matches[0].Content)
}

func TestEngine_Query_noMatchesSkipsAnalysis(t *testing.T) {
	emb := &keyedEmbedder{}
	stages := &stubStages{enhanced: "unrelated", analysis: "unused"}
	engine := NewEngine(emb, seededStore(t), stages, retrieval)

	res, err := engine.Query(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.True(t, res.NoMatches())
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Zero(t, stages.analyzeCalls)
}

func TestEngine_Query_enhanceError(t *testing.T) {
	emb := &keyedEmbedder{}
	stages := &stubStages{enhanceErr: models.ErrEmptyResponse}
	engine := NewEngine(emb, seededStore(t), stages, retrieval)

	_, err := engine.Query(context.Background(), "q", 5)
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
	assert.Empty(t, emb.calls)
}

func TestEngine_Query_embedError(t *testing.T) {
	cause := errors.New("boom")
	emb := &keyedEmbedder{err: cause}
	engine := NewEngine(emb, seededStore(t), &stubStages{enhanced: "e"}, retrieval)

	_, err := engine.Query(context.Background(), "q", 5)
	assert.ErrorIs(t, err, models.ErrEmbedding)
	assert.ErrorIs(t, err, cause)
}

func TestEngine_Query_analyzeError(t *testing.T) {
	emb := &keyedEmbedder{vectors: map[string][]float32{"e": {1, 0, 0}}}
	cause := errors.New("analyst down")
	engine := NewEngine(emb, seededStore(t), &stubStages{enhanced: "e", analyzeErr: cause}, retrieval)

	_, err := engine.Query(context.Background(), "q", 5)
	assert.ErrorIs(t, err, cause)
}

func TestEngine_effectiveLimit(t *testing.T) {
	e := NewEngine(nil, nil, nil, retrieval)
	assert.Equal(t, 5, e.effectiveLimit(0))
	assert.Equal(t, 3, e.effectiveLimit(3))
	assert.Equal(t, 20, e.effectiveLimit(50))

	bare := NewEngine(nil, nil, nil, &config.RetrievalConfig{})
	assert.Equal(t, models.DefaultQueryLimit, bare.effectiveLimit(0))
}
