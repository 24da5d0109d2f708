package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRole records prompts and replies from a script; failAt is a 1-based call number.
type stubRole struct {
	name    string
	prompts []string
	reply   func(call int, prompt string) string
	failAt  int
}

func (s *stubRole) Name() string { return s.name }

func (s *stubRole) Invoke(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	call := len(s.prompts)
	if s.failAt == call {
		return "", errors.New("upstream unavailable")
	}
	if s.reply != nil {
		return s.reply(call, prompt), nil
	}
	return fmt.Sprintf("  reply %d  ", call), nil
}

func matches(n int) []models.SimilarityMatch {
	out := make([]models.SimilarityMatch, n)
	for i := range out {
		out[i] = models.SimilarityMatch{Content: fmt.Sprintf("content-%d", i), Similarity: 0.9}
	}
	return out
}

func TestAnalyze_sevenChunksFourCalls(t *testing.T) {
	role := &stubRole{name: AnalystName}
	a := NewAnalyzer(role, 3, zap.NewNop())

	got, err := a.Analyze(context.Background(), matches(7), "what is x?")
	require.NoError(t, err)
	require.Len(t, role.prompts, 4)
	assert.Equal(t, "reply 4", got)

	assert.Contains(t, role.prompts[0], "Query: what is x?")
	assert.Contains(t, role.prompts[0], "Chunk 1:\ncontent-0\n\nChunk 2:\ncontent-1\n\nChunk 3:\ncontent-2")
	assert.Contains(t, role.prompts[1], "Chunk 1:\ncontent-3")
	assert.Contains(t, role.prompts[2], "Chunk 1:\ncontent-6")
	assert.NotContains(t, role.prompts[2], "Chunk 2:")

	synth := role.prompts[3]
	assert.True(t, strings.HasPrefix(synth, "Synthesize the following analyses"))
	assert.Contains(t, synth, "reply 1\n\nreply 2\n\nreply 3")
	assert.True(t, strings.HasSuffix(synth, "to the query: what is x?"))
}

func TestAnalyze_callCountMatchesBatches(t *testing.T) {
	for n := 1; n <= 10; n++ {
		role := &stubRole{name: AnalystName}
		_, err := NewAnalyzer(role, 3, nil).Analyze(context.Background(), matches(n), "q")
		require.NoError(t, err)
		assert.Equal(t, (n+2)/3+1, len(role.prompts), "n=%d", n)
	}
}

func TestAnalyze_batchFailureAborts(t *testing.T) {
	role := &stubRole{name: AnalystName, failAt: 2}
	_, err := NewAnalyzer(role, 3, nil).Analyze(context.Background(), matches(7), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 2 of 3")
	assert.Len(t, role.prompts, 2)
}

func TestAnalyze_zeroChunksSkipsRole(t *testing.T) {
	role := &stubRole{name: AnalystName}
	got, err := NewAnalyzer(role, 3, nil).Analyze(context.Background(), nil, "q")
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, got)
	assert.Empty(t, role.prompts)
}

func TestAnalyze_emptySynthesis(t *testing.T) {
	role := &stubRole{name: AnalystName, reply: func(call int, _ string) string {
		if call == 2 {
			return "   "
		}
		return "batch"
	}}
	_, err := NewAnalyzer(role, 3, nil).Analyze(context.Background(), matches(2), "q")
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestNewAnalyzer_defaultBatchSize(t *testing.T) {
	a := NewAnalyzer(&stubRole{}, 0, nil)
	assert.Equal(t, DefaultBatchSize, a.batchSize)
}

func TestEnhance(t *testing.T) {
	role := &stubRole{name: ResearcherName, reply: func(int, string) string { return "\n better query \n" }}
	got, err := NewEnhancer(role, nil).Enhance(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "better query", got)
	require.Len(t, role.prompts, 1)
	assert.Equal(t, "Please enhance this search query while maintaining its original intent:\nquery\n\n"+
		"Provide only the enhanced query without any explanation.", role.prompts[0])
}

func TestEnhance_emptyResponse(t *testing.T) {
	role := &stubRole{name: ResearcherName, reply: func(int, string) string { return " \t" }}
	_, err := NewEnhancer(role, nil).Enhance(context.Background(), "query")
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestEnhance_roleError(t *testing.T) {
	role := &stubRole{name: ResearcherName, failAt: 1}
	_, err := NewEnhancer(role, nil).Enhance(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestProcess_dispatch(t *testing.T) {
	researcher := &stubRole{name: ResearcherName, reply: func(int, string) string { return "enhanced" }}
	analyst := &stubRole{name: AnalystName}
	a := New(researcher, analyst, &config.AgentConfig{BatchSize: 2}, WithLogger(zap.NewNop()))

	got, err := a.Process(context.Background(), EnhanceQuery{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "enhanced", got)
	assert.Empty(t, analyst.prompts)

	_, err = a.Process(context.Background(), AnalyzeChunks{Chunks: matches(3), Query: "q"})
	require.NoError(t, err)
	assert.Len(t, analyst.prompts, 3)
	assert.Len(t, researcher.prompts, 1)
}

func TestProcess_nilOperation(t *testing.T) {
	a := New(&stubRole{}, &stubRole{}, &config.AgentConfig{})
	_, err := a.Process(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}
