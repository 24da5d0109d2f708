// Package agent implements the LLM-backed researcher and analyst roles and the two pipeline
// stages built on them: query enhancement and batched chunk analysis.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// ErrRateLimited reports a 429 from the completion API. The core never retries it.
var ErrRateLimited = errors.New("rate limited")

// Role is a stateless, prompt-bound LLM worker. Each Invoke is an independent exchange.
type Role interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ChatRole is a Role backed by OpenAI chat completions with a fixed system prompt.
type ChatRole struct {
	client       openai.Client
	name         string
	systemPrompt string
	model        string
	temperature  float64
	timeout      time.Duration
}

// NewClient builds an OpenAI client from cfg.
func NewClient(cfg *config.OpenAIConfig) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}

// NewChatRole creates a role. timeout bounds each Invoke; zero means no extra bound.
func NewChatRole(client openai.Client, name, systemPrompt string, cfg *config.AgentConfig) *ChatRole {
	return &ChatRole{
		client:       client,
		name:         name,
		systemPrompt: systemPrompt,
		model:        cfg.CompletionModel,
		temperature:  cfg.Temperature,
		timeout:      cfg.Timeout,
	}
}

// NewResearcher returns the query-enhancement role.
func NewResearcher(client openai.Client, cfg *config.AgentConfig) *ChatRole {
	return NewChatRole(client, ResearcherName, researcherSystemPrompt, cfg)
}

// NewAnalyst returns the chunk-analysis role.
func NewAnalyst(client openai.Client, cfg *config.AgentConfig) *ChatRole {
	return NewChatRole(client, AnalystName, analystSystemPrompt, cfg)
}

// Name returns the role name.
func (r *ChatRole) Name() string {
	return r.name
}

// Invoke sends prompt as the user message and returns the assistant content.
// Blank content fails with models.ErrEmptyResponse.
func (r *ChatRole) Invoke(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(r.systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(r.temperature),
	}

	completion, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("%s: %w: %w", r.name, ErrRateLimited, err)
		}
		return "", fmt.Errorf("%s: chat completion failed: %w", r.name, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no completion choices returned", r.name, models.ErrEmptyResponse)
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", r.name, models.ErrEmptyResponse)
	}
	return content, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

var _ Role = (*ChatRole)(nil)
