package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of chunks analyzed per analyst call.
const DefaultBatchSize = 3

// Analyzer runs batched chunk analysis followed by a single synthesis call.
type Analyzer struct {
	role      Role
	batchSize int
	logger    *zap.Logger
}

// NewAnalyzer wraps the analyst role. batchSize < 1 falls back to DefaultBatchSize.
func NewAnalyzer(role Role, batchSize int, logger *zap.Logger) *Analyzer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Analyzer{role: role, batchSize: batchSize, logger: utils.OrNop(logger)}
}

// Analyze partitions chunks into ordered batches, analyzes each batch sequentially and
// synthesizes the batch analyses into one answer. Any failed call aborts the whole run.
// With no chunks it returns NoInformationAnswer without calling the role.
func (a *Analyzer) Analyze(ctx context.Context, chunks []models.SimilarityMatch, query string) (string, error) {
	if len(chunks) == 0 {
		return NoInformationAnswer, nil
	}

	batches := (len(chunks) + a.batchSize - 1) / a.batchSize
	analyses := make([]string, 0, batches)
	for b := 0; b < batches; b++ {
		start := b * a.batchSize
		end := start + a.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		contents := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			contents = append(contents, c.Content)
		}

		resp, err := a.role.Invoke(ctx, batchPrompt(query, contents))
		if err != nil {
			return "", fmt.Errorf("failed to analyze batch %d of %d: %w", b+1, batches, err)
		}
		analyses = append(analyses, strings.TrimSpace(resp))
		a.logger.Debug("batch analyzed", zap.Int("batch", b+1), zap.Int("batches", batches))
	}

	resp, err := a.role.Invoke(ctx, synthesisPrompt(query, strings.Join(analyses, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("failed to synthesize analysis: %w", err)
	}
	synthesis := strings.TrimSpace(resp)
	if synthesis == "" {
		return "", fmt.Errorf("failed to synthesize analysis: %w", models.ErrEmptyResponse)
	}
	return synthesis, nil
}
