package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Get("a")                // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	embeds  int
	batches [][]string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	e := Cached(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := e.Embed(ctx, "hello")
	if inner.embeds != 1 {
		t.Errorf("inner Embed called %d times, want 1", inner.embeds)
	}
	if first[0] != second[0] {
		t.Error("cached vector differs")
	}

	vecs, err := e.EmbedBatch(ctx, []string{"hello", "world", "again"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 || vecs[0][0] != first[0] {
		t.Errorf("unexpected batch result %v", vecs)
	}
	if len(inner.batches) != 1 || len(inner.batches[0]) != 2 || inner.batches[0][0] != "world" {
		t.Errorf("expected one batch of misses [world again], got %v", inner.batches)
	}
	if e.Dimensions() != 4 {
		t.Errorf("Dimensions=%d", e.Dimensions())
	}
}

func TestCached_disabled(t *testing.T) {
	inner := NewMockEmbedder(4)
	if Cached(inner, 0) != Embedder(inner) {
		t.Error("size 0 should return the embedder unwrapped")
	}
}
