package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Enhancer rewrites a user query into a more retrieval-effective form.
type Enhancer struct {
	role   Role
	logger *zap.Logger
}

// NewEnhancer wraps the researcher role. A nil logger disables logging.
func NewEnhancer(role Role, logger *zap.Logger) *Enhancer {
	return &Enhancer{role: role, logger: utils.OrNop(logger)}
}

// Enhance returns the trimmed role response. A blank response is an error;
// the original query is never substituted.
func (e *Enhancer) Enhance(ctx context.Context, query string) (string, error) {
	resp, err := e.role.Invoke(ctx, enhancePrompt(query))
	if err != nil {
		return "", fmt.Errorf("failed to enhance query: %w", err)
	}
	enhanced := strings.TrimSpace(resp)
	if enhanced == "" {
		return "", fmt.Errorf("failed to enhance query: %w", models.ErrEmptyResponse)
	}
	e.logger.Debug("query enhanced",
		zap.String("query", utils.Truncate(query, 200)),
		zap.String("enhanced_query", utils.Truncate(enhanced, 200)))
	return enhanced, nil
}
