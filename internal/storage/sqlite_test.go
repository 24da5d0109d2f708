package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestSQLite(t *testing.T, dims int) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"), dims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_InsertSearch(t *testing.T) {
	store := newTestSQLite(t, 3)
	ctx := context.Background()
	for i, vec := range [][]float32{{1, 0, 0}, {0.8, 0.2, 0}, {0, 1, 0}} {
		ch := &models.DocumentChunk{
			ID:        string(rune('a' + i)),
			SourceURL: "https://example.com/a.pdf",
			Content:   "chunk " + string(rune('a'+i)),
			Index:     i,
			Embedding: vec,
		}
		if err := store.Insert(ctx, ch); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 0.7, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Content != "chunk a" || matches[0].Similarity < matches[1].Similarity {
		t.Errorf("unexpected order: %+v", matches)
	}
	if matches[1].Metadata[models.MetaChunkIndex] != 1 || matches[1].Metadata[models.MetaSourceURL] != "https://example.com/a.pdf" {
		t.Errorf("metadata = %v", matches[1].Metadata)
	}
	for _, m := range matches {
		if m.Similarity < 0.7 || m.Similarity > 1 {
			t.Errorf("similarity out of range: %v", m.Similarity)
		}
	}

	limited, _ := store.Search(ctx, []float32{1, 0, 0}, 0, 1)
	if len(limited) != 1 {
		t.Errorf("limit 1: got %d", len(limited))
	}
}

func TestSQLiteStore_Errors(t *testing.T) {
	store := newTestSQLite(t, 2)
	ctx := context.Background()
	if err := store.Insert(ctx, &models.DocumentChunk{ID: "x", Embedding: []float32{1}}); !errors.Is(err, models.ErrStore) {
		t.Errorf("Insert dimension mismatch: %v", err)
	}
	if _, err := store.Search(ctx, []float32{1, 2, 3}, 0, 1); !errors.Is(err, models.ErrStore) {
		t.Errorf("Search dimension mismatch: %v", err)
	}
	ch := &models.DocumentChunk{ID: "dup", SourceURL: "s", Content: "c", Embedding: []float32{1, 0}}
	if err := store.Insert(ctx, ch); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, ch); !errors.Is(err, models.ErrStore) {
		t.Errorf("duplicate id: %v", err)
	}
}

func TestSQLiteStore_DeleteSourcePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	store, err := NewSQLiteStore(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = store.Insert(ctx, &models.DocumentChunk{ID: "1", SourceURL: "x", Content: "a", Embedding: []float32{1, 0}})
	_ = store.Insert(ctx, &models.DocumentChunk{ID: "2", SourceURL: "x", Content: "b", Index: 1, Embedding: []float32{1, 0}})
	_ = store.Insert(ctx, &models.DocumentChunk{ID: "3", SourceURL: "y", Content: "c", Embedding: []float32{0, 1}})
	n, err := store.DeleteSource(ctx, "x")
	if err != nil || n != 2 {
		t.Fatalf("DeleteSource = %d, %v", n, err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if c, _ := reopened.Count(ctx); c != 1 {
		t.Errorf("after reopen: %d chunks, want 1", c)
	}
	if usage, err := DiskUsageBytes(SQLiteFiles(reopened.Path())...); err != nil || usage == 0 {
		t.Errorf("DiskUsageBytes = %d, %v", usage, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, &config.StoreConfig{Backend: BackendMemory}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*vector.MemoryStore); !ok {
		t.Errorf("memory backend returned %T", store)
	}

	store, err = Open(ctx, &config.StoreConfig{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")}, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("sqlite backend returned %T", store)
	}

	if _, err := Open(ctx, &config.StoreConfig{Backend: "redis"}, 4); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("unknown backend: %v", err)
	}
	if _, err := Open(ctx, &config.StoreConfig{Backend: BackendPostgres}, 4); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("postgres without URL: %v", err)
	}
}
