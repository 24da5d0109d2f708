// Package storage provides persistent vector store backends: SQLite and PostgreSQL with pgvector.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// SQLiteStore implements vector.Store on SQLite. Embeddings are stored as little-endian
// float32 BLOBs and searched by brute-force cosine similarity.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	dimensions int
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, dimensions int) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", models.ErrConfiguration)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %w", models.ErrStore, err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", models.ErrStore, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL: %w", models.ErrStore, err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", models.ErrStore, err)
	}

	return &SQLiteStore{db: db, path: dbPath, dimensions: dimensions}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_url ON document_chunks(source_url, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert stores chunk with its embedding.
func (s *SQLiteStore) Insert(ctx context.Context, chunk *models.DocumentChunk) error {
	if len(chunk.Embedding) != s.dimensions {
		return fmt.Errorf("%w: vector dimension mismatch: got %d, expected %d",
			models.ErrStore, len(chunk.Embedding), s.dimensions)
	}
	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_chunks (id, source_url, chunk_index, content, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.SourceURL, chunk.Index, chunk.Content, vector.EncodeFloat32s(chunk.Embedding), createdAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert chunk: %w", models.ErrStore, err)
	}
	return nil
}

// Search scans all chunks and returns the best matches by cosine similarity.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]models.SimilarityMatch, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query dimension mismatch: got %d, expected %d",
			models.ErrStore, len(query), s.dimensions)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_url, chunk_index, content, embedding FROM document_chunks ORDER BY source_url, chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query chunks: %w", models.ErrStore, err)
	}
	defer rows.Close()

	var candidates []vector.Candidate
	for rows.Next() {
		var (
			ch   models.DocumentChunk
			blob []byte
		)
		if err := rows.Scan(&ch.SourceURL, &ch.Index, &ch.Content, &blob); err != nil {
			return nil, fmt.Errorf("%w: failed to scan chunk: %w", models.ErrStore, err)
		}
		vec, err := vector.DecodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d of %s: %w", models.ErrStore, ch.Index, ch.SourceURL, err)
		}
		candidates = append(candidates, vector.Candidate{Content: ch.Content, Metadata: ch.Metadata(), Embedding: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read chunks: %w", models.ErrStore, err)
	}
	return vector.Rank(candidates, query, threshold, limit), nil
}

// DeleteSource removes all chunks of sourceURL.
func (s *SQLiteStore) DeleteSource(ctx context.Context, sourceURL string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE source_url = ?`, sourceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete chunks: %w", models.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrStore, err)
	}
	return int(n), nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count chunks: %w", models.ErrStore, err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ vector.Store = (*SQLiteStore)(nil)
