package rag

import (
	"context"
	"testing"

	"lead_server/core/domain"
)

func vec(values ...float32) []float32 { return values }

func TestMemoryIndexSearchRanking(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	chunks := []*domain.Chunk{
		{DocumentName: "a.md", Category: domain.CategoryFAQ, Text: "far", Embedding: vec(0, 1, 0)},
		{DocumentName: "b.md", Category: domain.CategoryFAQ, Text: "close", Embedding: vec(1, 0.1, 0)},
		{DocumentName: "c.md", Category: domain.CategoryFAQ, Text: "exact", Embedding: vec(1, 0, 0)},
	}
	if err := index.InsertBatch(ctx, chunks); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	results, err := index.Search(ctx, vec(1, 0, 0), &ChunkSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "exact" || results[1].Chunk.Text != "close" || results[2].Chunk.Text != "far" {
		t.Errorf("wrong ranking: %s, %s, %s",
			results[0].Chunk.Text, results[1].Chunk.Text, results[2].Chunk.Text)
	}
}

func TestMemoryIndexTieBreaksByInsertionOrder(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	// Identical embeddings, so scores tie exactly.
	chunks := []*domain.Chunk{
		{DocumentName: "first.md", Text: "first", Embedding: vec(1, 0)},
		{DocumentName: "second.md", Text: "second", Embedding: vec(1, 0)},
		{DocumentName: "third.md", Text: "third", Embedding: vec(1, 0)},
	}
	if err := index.InsertBatch(ctx, chunks); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	results, err := index.Search(ctx, vec(1, 0), &ChunkSearchOptions{Limit: 3})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Chunk.Text != want {
			t.Errorf("position %d: expected %q, got %q", i, want, results[i].Chunk.Text)
		}
	}
}

func TestMemoryIndexCategoryFilter(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	index.InsertBatch(ctx, []*domain.Chunk{
		{DocumentName: "p.md", Category: domain.CategoryPricing, Text: "pricing", Embedding: vec(1, 0)},
		{DocumentName: "f.md", Category: domain.CategoryFAQ, Text: "faq", Embedding: vec(1, 0)},
	})

	results, err := index.Search(ctx, vec(1, 0), &ChunkSearchOptions{
		Categories: []domain.DocumentCategory{domain.CategoryPricing},
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Category != domain.CategoryPricing {
		t.Errorf("category filter not applied, got %d results", len(results))
	}
}

func TestMemoryIndexMinSimilarity(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	index.InsertBatch(ctx, []*domain.Chunk{
		{DocumentName: "a.md", Text: "orthogonal", Embedding: vec(0, 1)},
		{DocumentName: "b.md", Text: "aligned", Embedding: vec(1, 0)},
	})

	results, err := index.Search(ctx, vec(1, 0), &ChunkSearchOptions{Limit: 10, MinSimilarity: 0.5})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "aligned" {
		t.Errorf("min similarity floor not applied, got %d results", len(results))
	}
}

func TestMemoryIndexDeactivateAndReingest(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	index.InsertBatch(ctx, []*domain.Chunk{
		{DocumentName: "doc.md", Text: "v1 a", Embedding: vec(1, 0)},
		{DocumentName: "doc.md", Text: "v1 b", Embedding: vec(1, 0)},
		{DocumentName: "other.md", Text: "other", Embedding: vec(1, 0)},
	})

	affected, err := index.DeactivateDocument(ctx, "doc.md")
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if affected != 2 {
		t.Errorf("expected 2 deactivated, got %d", affected)
	}

	index.InsertBatch(ctx, []*domain.Chunk{
		{DocumentName: "doc.md", Text: "v2", Embedding: vec(1, 0)},
	})

	results, _ := index.Search(ctx, vec(1, 0), &ChunkSearchOptions{Limit: 10})
	for _, r := range results {
		if r.Chunk.Text == "v1 a" || r.Chunk.Text == "v1 b" {
			t.Errorf("deactivated chunk %q still searchable", r.Chunk.Text)
		}
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ActiveChunks != 2 {
		t.Errorf("expected 2 active chunks, got %d", stats.ActiveChunks)
	}
	if stats.ActiveDocuments != 2 {
		t.Errorf("expected 2 active documents, got %d", stats.ActiveDocuments)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", vec(1, 0), vec(1, 0), 1},
		{"orthogonal", vec(1, 0), vec(0, 1), 0},
		{"opposite", vec(1, 0), vec(-1, 0), -1},
		{"mismatched length", vec(1, 0), vec(1, 0, 0), 0},
		{"zero vector", vec(0, 0), vec(1, 0), 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
