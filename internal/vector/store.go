// Package vector defines the vector store contract and an in-memory implementation.
package vector

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Store persists chunks with their embeddings and answers similarity queries.
// Implementations must be safe for concurrent use and wrap failures with models.ErrStore.
type Store interface {
	// Insert persists one chunk. chunk.Embedding must be set.
	Insert(ctx context.Context, chunk *models.DocumentChunk) error
	// Search returns at most limit matches with similarity >= threshold,
	// sorted by similarity descending.
	Search(ctx context.Context, query []float32, threshold float64, limit int) ([]models.SimilarityMatch, error)
	// DeleteSource removes every chunk of sourceURL and returns how many were removed.
	DeleteSource(ctx context.Context, sourceURL string) (int, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)
	Close() error
}
