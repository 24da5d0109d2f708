package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Loader acquires the raw text of a source (URL or file). Failures wrap models.ErrExtraction.
type Loader interface {
	Load(ctx context.Context, source string) (string, error)
}

// Indexer runs the ingestion flow: load, normalize, chunk, then embed and insert each chunk.
type Indexer struct {
	loader   Loader
	embedder embedding.Embedder
	store    vector.Store
	chunker  *Chunker
	logger   *zap.Logger // optional; when set, logs debug events
	now      func() time.Time
	sources  sourceLocks
}

// sourceLocks serializes replace and remove operations per source URL.
type sourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sourceLock
}

type sourceLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until source is free and returns the matching unlock.
func (l *sourceLocks) lock(source string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sourceLock)
	}
	sl, ok := l.locks[source]
	if !ok {
		sl = &sourceLock{}
		l.locks[source] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, source)
		}
		l.mu.Unlock()
	}
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (source ingested, chunk stored, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
// Returns models.ErrConfiguration when the chunking settings are invalid.
func NewIndexer(
	loader Loader,
	embedder embedding.Embedder,
	store vector.Store,
	cfg *config.ChunkingConfig,
	opts ...IndexerOption,
) (*Indexer, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	idx := &Indexer{
		loader:   loader,
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Ingest loads sourceURL and stores its chunks, returning the chunk count.
// Chunks are embedded and inserted one at a time in source order. When chunk i fails,
// chunks before it stay stored and Ingest returns i with the error.
func (idx *Indexer) Ingest(ctx context.Context, sourceURL string) (int, error) {
	if idx.logger != nil {
		idx.logger.Debug("indexer ingesting source", zap.String("source_url", sourceURL))
	}
	raw, err := idx.loader.Load(ctx, sourceURL)
	if err != nil {
		return 0, ensureKind(models.ErrExtraction, fmt.Errorf("failed to load %s: %w", sourceURL, err))
	}
	contents := idx.chunker.Split(Normalize(raw))
	for i, content := range contents {
		vec, err := idx.embedder.Embed(ctx, content)
		if err != nil {
			return i, ensureKind(models.ErrEmbedding, fmt.Errorf("failed to embed chunk %d of %s: %w", i, sourceURL, err))
		}
		chunk := &models.DocumentChunk{
			ID:        uuid.New().String(),
			SourceURL: sourceURL,
			Content:   content,
			Index:     i,
			Embedding: vec,
			CreatedAt: idx.now().UTC(),
		}
		if err := idx.store.Insert(ctx, chunk); err != nil {
			return i, ensureKind(models.ErrStore, fmt.Errorf("failed to store chunk %d of %s: %w", i, sourceURL, err))
		}
		if idx.logger != nil {
			idx.logger.Debug("indexer chunk stored", zap.String("source_url", sourceURL), zap.Int("chunk_index", i))
		}
	}
	if idx.logger != nil {
		idx.logger.Info("indexer source ingested", zap.String("source_url", sourceURL), zap.Int("chunk_count", len(contents)))
	}
	return len(contents), nil
}

// IngestFile replaces the stored chunks of a local file. The source URL is the file:// URL
// of its absolute path, so re-ingesting the same file does not duplicate chunks.
// Concurrent calls for the same file run one after the other.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("%w: stat file: %w", models.ErrExtraction, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: not a regular file: %s", models.ErrExtraction, absPath)
	}
	source := FileSourceURL(absPath)
	unlock := idx.sources.lock(source)
	defer unlock()
	if _, err := idx.store.DeleteSource(ctx, source); err != nil {
		return 0, ensureKind(models.ErrStore, fmt.Errorf("failed to delete previous chunks: %w", err))
	}
	return idx.Ingest(ctx, source)
}

// RemoveFile deletes the stored chunks of a local file and returns how many were removed.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	source := FileSourceURL(absPath)
	unlock := idx.sources.lock(source)
	defer unlock()
	n, err := idx.store.DeleteSource(ctx, source)
	if err != nil {
		return 0, ensureKind(models.ErrStore, err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer file removed", zap.String("path", absPath), zap.Int("chunks", n))
	}
	return n, nil
}

// IngestDirectory walks dir recursively and ingests each regular file whose extension
// is in allowedExts (if non-nil and non-empty; otherwise all files). Returns the number
// of files ingested and the first error encountered, if any.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := idx.IngestFile(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// FileSourceURL returns the file:// URL for an absolute path.
func FileSourceURL(absPath string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String()
}

// ExtensionAllowed reports whether ext (with or without dot) is in allowed, case-insensitive.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// ensureKind makes sure err carries the taxonomy sentinel kind.
func ensureKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
