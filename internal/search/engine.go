// Package search runs the query flow: enhance, embed, retrieve, then analyze.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Stages is the agent pipeline used by the engine. *agent.Agent implements it.
type Stages interface {
	Enhance(ctx context.Context, query string) (string, error)
	Analyze(ctx context.Context, chunks []models.SimilarityMatch, query string) (string, error)
}

// Engine answers natural-language questions against the vector store.
type Engine struct {
	embedder embedding.Embedder
	store    vector.Store
	stages   Stages
	config   *config.RetrievalConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = utils.OrNop(l) }
}

// NewEngine creates a query engine with the given dependencies.
func NewEngine(
	embedder embedding.Embedder,
	store vector.Store,
	stages Stages,
	cfg *config.RetrievalConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		embedder: embedder,
		store:    store,
		stages:   stages,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query enhances question, retrieves up to limit chunks above the similarity threshold
// and analyzes them against the original question. Every returned match carries the same
// analysis text in metadata.analysis. When nothing clears the threshold the result has
// OutcomeNoMatches and the analyst is never called.
func (e *Engine) Query(ctx context.Context, question string, limit int) (*models.QueryResult, error) {
	startTime := time.Now()
	limit = e.effectiveLimit(limit)

	enhanced, err := e.stages.Enhance(ctx, question)
	if err != nil {
		return nil, err
	}

	vec, err := e.embedder.Embed(ctx, enhanced)
	if err != nil {
		return nil, ensureKind(models.ErrEmbedding, fmt.Errorf("failed to embed query: %w", err))
	}

	found, err := e.store.Search(ctx, vec, e.config.SimilarityThreshold, limit)
	if err != nil {
		return nil, ensureKind(models.ErrStore, fmt.Errorf("failed to search chunks: %w", err))
	}

	result := &models.QueryResult{
		Query:         question,
		EnhancedQuery: enhanced,
		Matches:       []models.SimilarityMatch{},
	}
	if len(found) == 0 {
		result.Outcome = models.OutcomeNoMatches
		result.QueryTime = time.Since(startTime).Milliseconds()
		e.logger.Info("query found no matches",
			zap.String("query", utils.Truncate(question, 200)),
			zap.String("enhanced_query", utils.Truncate(enhanced, 200)),
			zap.Int("limit", limit))
		return result, nil
	}

	analysis, err := e.stages.Analyze(ctx, found, question)
	if err != nil {
		return nil, err
	}

	result.Outcome = models.OutcomeAnswered
	result.Analysis = analysis
	result.Matches = make([]models.SimilarityMatch, len(found))
	for i, m := range found {
		result.Matches[i] = m.WithAnalysis(analysis)
	}
	result.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Info("query answered",
		zap.String("query", utils.Truncate(question, 200)),
		zap.String("enhanced_query", utils.Truncate(enhanced, 200)),
		zap.Int("limit", limit),
		zap.Int("matches", len(found)),
		zap.Int64("query_time_ms", result.QueryTime))
	return result, nil
}

// effectiveLimit applies the configured default and cap.
func (e *Engine) effectiveLimit(limit int) int {
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if e.config.MaxLimit > 0 && limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	if limit <= 0 {
		limit = models.DefaultQueryLimit
	}
	return limit
}

func ensureKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
