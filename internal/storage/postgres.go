package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultTable is the chunk table name.
const DefaultTable = "document_chunks"

// PostgresStore implements vector.Store on PostgreSQL with the pgvector extension.
// Similarity is 1 - cosine distance (the <=> operator).
type PostgresStore struct {
	pool       *pgxpool.Pool
	table      string // sanitized identifier
	rawTable   string
	dimensions int
	timeout    time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithOpTimeout bounds each store operation.
func WithOpTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) { s.timeout = d }
}

// NewPostgresStore connects to databaseURL and verifies the connection.
// When ensureSchema is true the vector extension, table, and indexes are created if missing.
func NewPostgresStore(ctx context.Context, databaseURL, table string, dimensions int, ensureSchema bool, opts ...PostgresOption) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: database URL not set", models.ErrConfiguration)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrConfiguration)
	}
	if table == "" {
		table = DefaultTable
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %w", models.ErrStore, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", models.ErrStore, err)
	}
	s := &PostgresStore{
		pool:       pool,
		table:      pgx.Identifier{table}.Sanitize(),
		rawTable:   table,
		dimensions: dimensions,
	}
	for _, opt := range opts {
		opt(s)
	}
	if ensureSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// EnsureSchema creates the vector extension, the chunk table, and its source index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, s.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source_url, chunk_index)`,
			pgx.Identifier{s.rawTable + "_source_url_idx"}.Sanitize(), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: failed to ensure schema: %w", models.ErrStore, err)
		}
	}
	return nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Insert stores chunk with its embedding and metadata {source_url, chunk_index}.
func (s *PostgresStore) Insert(ctx context.Context, chunk *models.DocumentChunk) error {
	if len(chunk.Embedding) != s.dimensions {
		return fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d",
			models.ErrStore, len(chunk.Embedding), s.dimensions)
	}
	meta, err := json.Marshal(chunk.Metadata())
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %w", models.ErrStore, err)
	}
	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, source_url, chunk_index, content, metadata, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6::vector, $7)`, s.table),
		chunk.ID, chunk.SourceURL, chunk.Index, chunk.Content, string(meta), pgvector.NewVector(chunk.Embedding), createdAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert chunk: %w", models.ErrStore, err)
	}
	return nil
}

// Search returns chunks with 1 - cosine distance >= threshold, nearest first.
func (s *PostgresStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]models.SimilarityMatch, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d",
			models.ErrStore, len(query), s.dimensions)
	}
	matches := make([]models.SimilarityMatch, 0)
	if limit <= 0 {
		return matches, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT source_url, chunk_index, content, 1 - (embedding <=> $1::vector) AS similarity
			FROM %s
			WHERE 1 - (embedding <=> $1::vector) >= $2
			ORDER BY embedding <=> $1::vector
			LIMIT $3`, s.table),
		pgvector.NewVector(query), threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search chunks: %w", models.ErrStore, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			ch         models.DocumentChunk
			similarity float64
		)
		if err := rows.Scan(&ch.SourceURL, &ch.Index, &ch.Content, &similarity); err != nil {
			return nil, fmt.Errorf("%w: failed to scan match: %w", models.ErrStore, err)
		}
		matches = append(matches, models.SimilarityMatch{
			Content:    ch.Content,
			Metadata:   ch.Metadata(),
			Similarity: utils.Clamp01(similarity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read matches: %w", models.ErrStore, err)
	}
	return matches, nil
}

// DeleteSource removes all chunks of sourceURL.
func (s *PostgresStore) DeleteSource(ctx context.Context, sourceURL string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_url = $1`, s.table), sourceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete chunks: %w", models.ErrStore, err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the number of stored chunks.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count chunks: %w", models.ErrStore, err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ vector.Store = (*PostgresStore)(nil)
