// Package models defines core data structures for chunks, similarity matches, and API payloads.
package models

import "time"

// Metadata keys stored with every chunk. MetaAnalysis is only attached at query time.
const (
	MetaSourceURL  = "source_url"
	MetaChunkIndex = "chunk_index"
	MetaAnalysis   = "analysis"
)

// DocumentChunk is a bounded substring of a source document, the unit of embedding and retrieval.
// Index is the 0-based position of the chunk inside its source; indices are contiguous per source.
type DocumentChunk struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	Content   string    `json:"content"`
	Index     int       `json:"chunk_index"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Metadata returns the metadata persisted alongside the chunk.
func (c *DocumentChunk) Metadata() map[string]interface{} {
	return map[string]interface{}{
		MetaSourceURL:  c.SourceURL,
		MetaChunkIndex: c.Index,
	}
}

// SimilarityMatch is a retrieved chunk plus its cosine similarity to the query vector (0-1).
// Matches are transient and never persisted.
type SimilarityMatch struct {
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Similarity float64                `json:"similarity"`
}

// WithAnalysis returns a copy of m whose metadata also carries the analysis text.
// The original metadata map is not modified.
func (m SimilarityMatch) WithAnalysis(analysis string) SimilarityMatch {
	meta := make(map[string]interface{}, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		meta[k] = v
	}
	meta[MetaAnalysis] = analysis
	m.Metadata = meta
	return m
}
