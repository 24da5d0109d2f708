package agent

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Operation is one of the closed set of agent operations: EnhanceQuery or AnalyzeChunks.
type Operation interface {
	isOperation()
}

// EnhanceQuery asks the researcher to rewrite Query.
type EnhanceQuery struct {
	Query string
}

// AnalyzeChunks asks the analyst to answer Query from Chunks.
type AnalyzeChunks struct {
	Chunks []models.SimilarityMatch
	Query  string
}

func (EnhanceQuery) isOperation()  {}
func (AnalyzeChunks) isOperation() {}

// Agent composes the researcher and analyst stages.
type Agent struct {
	enhancer *Enhancer
	analyzer *Analyzer
}

// Option configures an Agent.
type Option func(*agentOptions)

type agentOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger shared by both stages.
func WithLogger(l *zap.Logger) Option {
	return func(o *agentOptions) { o.logger = l }
}

// New builds an Agent from the two roles. cfg supplies the analysis batch size.
func New(researcher, analyst Role, cfg *config.AgentConfig, opts ...Option) *Agent {
	var o agentOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Agent{
		enhancer: NewEnhancer(researcher, o.logger),
		analyzer: NewAnalyzer(analyst, cfg.BatchSize, o.logger),
	}
}

// NewFromConfig builds an Agent whose roles talk to the OpenAI chat API.
func NewFromConfig(cfg *config.Config, opts ...Option) *Agent {
	client := NewClient(&cfg.OpenAI)
	return New(NewResearcher(client, &cfg.Agent), NewAnalyst(client, &cfg.Agent), &cfg.Agent, opts...)
}

// Enhance runs the query enhancement stage.
func (a *Agent) Enhance(ctx context.Context, query string) (string, error) {
	return a.enhancer.Enhance(ctx, query)
}

// Analyze runs the chunk analysis stage.
func (a *Agent) Analyze(ctx context.Context, chunks []models.SimilarityMatch, query string) (string, error) {
	return a.analyzer.Analyze(ctx, chunks, query)
}

// Process dispatches op to its stage.
func (a *Agent) Process(ctx context.Context, op Operation) (string, error) {
	switch op := op.(type) {
	case EnhanceQuery:
		return a.Enhance(ctx, op.Query)
	case AnalyzeChunks:
		return a.Analyze(ctx, op.Chunks, op.Query)
	default:
		return "", fmt.Errorf("%w: unsupported agent operation %T", models.ErrInvalidRequest, op)
	}
}
