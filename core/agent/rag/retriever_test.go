package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lead_server/core/domain"
)

// fakeEmbedder maps known texts to fixed vectors. Unknown texts embed to the
// fallback vector; a nil fallback makes every call fail.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback == nil {
		return nil, errors.New("provider unavailable")
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	index := NewMemoryIndex()
	err := index.InsertBatch(context.Background(), []*domain.Chunk{
		{DocumentName: "pricing.md", Category: domain.CategoryPricing, SectionTitle: "MOQ",
			Text: "Minimum order is 5000 units.", Embedding: vec(1, 0, 0)},
		{DocumentName: "catalog.md", Category: domain.CategoryCatalog,
			Text: "We offer probiotic blends.", Embedding: vec(0.9, 0.1, 0)},
		{DocumentName: "faq.md", Category: domain.CategoryFAQ,
			Text: "Lead times are 6 weeks.", Embedding: vec(0, 1, 0)},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return index
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"moq question": vec(1, 0, 0),
	}}
	retriever := NewRetriever(embedder, seededIndex(t), 10)

	results := retriever.Retrieve(context.Background(), &RetrievalRequest{Query: "moq question"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].DocumentName != "pricing.md" {
		t.Errorf("expected pricing.md first, got %s", results[0].DocumentName)
	}
	if results[0].Similarity < results[1].Similarity || results[1].Similarity < results[2].Similarity {
		t.Error("results not in descending similarity order")
	}
}

func TestRetrieveEmbedFailureReturnsEmpty(t *testing.T) {
	retriever := NewRetriever(&fakeEmbedder{}, seededIndex(t), 10)

	results := retriever.Retrieve(context.Background(), &RetrievalRequest{Query: "anything"})
	if len(results) != 0 {
		t.Errorf("expected empty results on embed failure, got %d", len(results))
	}
}

func TestRetrieveMinSimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q": vec(1, 0, 0),
	}}
	retriever := NewRetriever(embedder, seededIndex(t), 10)

	results := retriever.Retrieve(context.Background(), &RetrievalRequest{
		Query:         "q",
		MinSimilarity: 0.95,
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result above 0.95, got %d", len(results))
	}
	if results[0].DocumentName != "pricing.md" {
		t.Errorf("expected pricing.md, got %s", results[0].DocumentName)
	}
}

func TestAssembleContextFormat(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q": vec(1, 0, 0),
	}}
	retriever := NewRetriever(embedder, seededIndex(t), 10)

	block := retriever.AssembleContext(context.Background(), "q", 3000, nil)

	if !strings.Contains(block, "--- Source: pricing.md | Section: MOQ | Similarity: ") {
		t.Errorf("missing attribution header:\n%s", block)
	}
	// Chunks without a section title render as N/A.
	if !strings.Contains(block, "| Section: N/A |") {
		t.Errorf("missing N/A section fallback:\n%s", block)
	}
	if !strings.Contains(block, "Minimum order is 5000 units.") {
		t.Error("chunk text missing from context")
	}
}

func TestAssembleContextStopsAtBudget(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	// Best match is large, the rest are small. Assembly must stop at the
	// first over-budget chunk rather than skipping it.
	index.InsertBatch(ctx, []*domain.Chunk{
		{DocumentName: "small1.md", Text: strings.Repeat("a", 40), Embedding: vec(1, 0, 0)},
		{DocumentName: "big.md", Text: strings.Repeat("b", 400), Embedding: vec(0.95, 0.05, 0)},
		{DocumentName: "small2.md", Text: strings.Repeat("c", 40), Embedding: vec(0.9, 0.1, 0)},
	})

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q": vec(1, 0, 0),
	}}
	retriever := NewRetriever(embedder, index, 10)

	// Budget of 50 tokens fits the 10-token chunk, then the 100-token chunk
	// overflows and assembly stops; the trailing small chunk is not pulled up.
	result := retriever.AssembleContext(ctx, "q", 50, nil)

	if !strings.Contains(result, "small1.md") {
		t.Error("first chunk missing")
	}
	if strings.Contains(result, "big.md") {
		t.Error("over-budget chunk included")
	}
	if strings.Contains(result, "small2.md") {
		t.Error("assembly did not stop at first over-budget chunk")
	}
}

func TestAssembleContextEmptyKnowledgeBase(t *testing.T) {
	embedder := &fakeEmbedder{fallback: vec(1, 0, 0)}
	retriever := NewRetriever(embedder, NewMemoryIndex(), 10)

	result := retriever.AssembleContext(context.Background(), "anything", 3000, nil)
	if result != "No relevant context found in knowledge base." {
		t.Errorf("expected no-context message, got %q", result)
	}
}

func TestAssembleContextPerCategorySearch(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"q": vec(1, 0, 0),
	}}
	retriever := NewRetriever(embedder, seededIndex(t), 10)

	result := retriever.AssembleContext(context.Background(), "q", 3000,
		[]domain.DocumentCategory{domain.CategoryPricing, domain.CategoryCatalog})

	if !strings.Contains(result, "pricing.md") || !strings.Contains(result, "catalog.md") {
		t.Errorf("expected both category results:\n%s", result)
	}
	if strings.Contains(result, "faq.md") {
		t.Error("unrequested category leaked into context")
	}
}
