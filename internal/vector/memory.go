package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryStore is an in-memory vector store using brute-force cosine search.
// Suitable for tests and development; contents are lost on Close.
type MemoryStore struct {
	dimensions int
	chunks     []*models.DocumentChunk
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store for vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrConfiguration)
	}
	return &MemoryStore{
		dimensions: dimensions,
		chunks:     make([]*models.DocumentChunk, 0),
	}, nil
}

// Insert stores a copy of chunk.
func (m *MemoryStore) Insert(ctx context.Context, chunk *models.DocumentChunk) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	if len(chunk.Embedding) != m.dimensions {
		return fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d",
			models.ErrStore, len(chunk.Embedding), m.dimensions)
	}
	c := *chunk
	c.Embedding = make([]float32, m.dimensions)
	copy(c.Embedding, chunk.Embedding)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, &c)
	return nil
}

// Search returns matches by cosine similarity.
func (m *MemoryStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]models.SimilarityMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d",
			models.ErrStore, len(query), m.dimensions)
	}
	m.mu.RLock()
	candidates := make([]Candidate, len(m.chunks))
	for i, c := range m.chunks {
		candidates[i] = Candidate{Content: c.Content, Metadata: c.Metadata(), Embedding: c.Embedding}
	}
	m.mu.RUnlock()
	return Rank(candidates, query, threshold, limit), nil
}

// DeleteSource removes all chunks of sourceURL.
func (m *MemoryStore) DeleteSource(ctx context.Context, sourceURL string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]*models.DocumentChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		if c.SourceURL != sourceURL {
			kept = append(kept, c)
		}
	}
	removed := len(m.chunks) - len(kept)
	m.chunks = kept
	return removed, nil
}

// Count returns the number of stored chunks.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

// Chunks returns copies of the stored chunks in insertion order.
func (m *MemoryStore) Chunks() []models.DocumentChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DocumentChunk, len(m.chunks))
	for i, c := range m.chunks {
		out[i] = *c
	}
	return out
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
