package rag

import (
	"context"
	"testing"

	"lead_server/core/domain"
)

func TestIngestDocumentReplacesPriorVersion(t *testing.T) {
	index := NewMemoryIndex()
	embedder := &fakeEmbedder{fallback: vec(1, 0, 0)}
	indexer := NewIndexerService(NewChunker(500, 50), embedder, index)
	ctx := context.Background()

	doc := &domain.Document{
		FileName: "pricing.md",
		Category: domain.CategoryPricing,
		FullText: "Bulk pricing starts at 5000 units.",
	}

	first, err := indexer.IngestDocument(ctx, doc)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if first.ChunksStored != 1 || first.Deactivated != 0 {
		t.Errorf("first ingest: stored=%d deactivated=%d", first.ChunksStored, first.Deactivated)
	}

	second, err := indexer.IngestDocument(ctx, &domain.Document{
		FileName: "pricing.md",
		Category: domain.CategoryPricing,
		FullText: "Updated pricing, now from 3000 units.",
	})
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if second.Deactivated != 1 {
		t.Errorf("expected 1 deactivated on re-ingest, got %d", second.Deactivated)
	}

	stats, _ := index.Stats(ctx)
	if stats.ActiveChunks != 1 {
		t.Errorf("expected 1 active chunk after replace, got %d", stats.ActiveChunks)
	}
}

func TestIngestDocumentUnknownCategory(t *testing.T) {
	indexer := NewIndexerService(NewChunker(500, 50), &fakeEmbedder{fallback: vec(1)}, NewMemoryIndex())

	_, err := indexer.IngestDocument(context.Background(), &domain.Document{
		FileName: "x.md",
		Category: "promo",
		FullText: "text",
	})
	if err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestIngestDocumentEmpty(t *testing.T) {
	indexer := NewIndexerService(NewChunker(500, 50), &fakeEmbedder{fallback: vec(1)}, NewMemoryIndex())

	_, err := indexer.IngestDocument(context.Background(), &domain.Document{
		FileName: "empty.md",
		Category: domain.CategoryFAQ,
		FullText: "   ",
	})
	if err != ErrNoChunks {
		t.Errorf("expected ErrNoChunks, got %v", err)
	}
}

func TestIngestDocumentAllEmbeddingsFail(t *testing.T) {
	// fakeEmbedder without a fallback fails every text.
	indexer := NewIndexerService(NewChunker(500, 50), &fakeEmbedder{}, NewMemoryIndex())

	_, err := indexer.IngestDocument(context.Background(), &domain.Document{
		FileName: "x.md",
		Category: domain.CategoryFAQ,
		FullText: "some content",
	})
	if err != ErrNoChunks {
		t.Errorf("expected ErrNoChunks when no chunk embeds, got %v", err)
	}
}
