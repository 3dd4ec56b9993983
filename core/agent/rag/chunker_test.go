package rag

import (
	"strings"
	"testing"

	"lead_server/core/domain"
)

func TestSplitByParagraphsEmpty(t *testing.T) {
	chunker := NewChunker(500, 50)

	if chunks := chunker.SplitByParagraphs(""); chunks != nil {
		t.Errorf("expected nil for empty input, got %d chunks", len(chunks))
	}
	if chunks := chunker.SplitByParagraphs("   \n\n  "); chunks != nil {
		t.Errorf("expected nil for whitespace input, got %d chunks", len(chunks))
	}
}

func TestSplitByParagraphsSmallInput(t *testing.T) {
	chunker := NewChunker(500, 50)

	chunks := chunker.SplitByParagraphs("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Errorf("expected unchanged text, got %q", chunks[0])
	}
}

func TestSplitByParagraphsRespectsSize(t *testing.T) {
	// 50-token chunks = 200 chars under the heuristic counter
	chunker := NewChunker(50, 5)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString(strings.Repeat("word ", 20))
		sb.WriteString("\n\n")
	}

	chunks := chunker.SplitByParagraphs(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if got := chunker.CountTokens(chunk); got > 50 {
			t.Errorf("chunk %d exceeds size: %d tokens", i, got)
		}
	}
}

func TestSplitByTokensOverlap(t *testing.T) {
	chunker := NewChunker(10, 2) // 40-char windows, 8-char overlap

	text := strings.Repeat("abcdefghij", 12) // 120 chars, no paragraph breaks
	chunks := chunker.SplitByTokens(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-8:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("window %d does not overlap previous by 8 chars", i)
		}
	}
}

func TestSplitByParagraphsOversizedParagraph(t *testing.T) {
	chunker := NewChunker(10, 2)

	// One atomic paragraph far over the chunk size gets window-split.
	text := strings.Repeat("x", 200)
	chunks := chunker.SplitByParagraphs(text)

	if len(chunks) < 2 {
		t.Fatalf("expected oversized paragraph to be split, got %d chunks", len(chunks))
	}
}

func TestChunkDocumentSectionIsolation(t *testing.T) {
	chunker := NewChunker(500, 50)

	doc := &domain.Document{
		FileName: "catalog.pdf",
		Category: domain.CategoryCatalog,
		Sections: []domain.DocumentSection{
			{Title: "Probiotics", Content: "Probiotic blends and strains."},
			{Title: "Proteins", Content: "Whey and plant protein powders."},
			{Title: "Empty", Content: "   "},
		},
	}

	chunks := chunker.ChunkDocument(doc)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks (empty section skipped), got %d", len(chunks))
	}

	if chunks[0].SectionTitle != "Probiotics" || chunks[1].SectionTitle != "Proteins" {
		t.Errorf("section titles not preserved: %q, %q", chunks[0].SectionTitle, chunks[1].SectionTitle)
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("expected ordinal %d, got %d", i, chunk.ChunkIndex)
		}
		if chunk.DocumentName != "catalog.pdf" {
			t.Errorf("chunk %d lost document name", i)
		}
		if chunk.TokenCount != chunker.CountTokens(chunk.Text) {
			t.Errorf("chunk %d token count mismatch", i)
		}
	}
}

func TestChunkDocumentNoSections(t *testing.T) {
	chunker := NewChunker(500, 50)

	doc := &domain.Document{
		FileName: "faq.md",
		Category: domain.CategoryFAQ,
		FullText: "What is your MOQ?\n\nOur minimum order is 5000 units.",
	}

	chunks := chunker.ChunkDocument(doc)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].SectionTitle != "" {
		t.Errorf("expected empty section title, got %q", chunks[0].SectionTitle)
	}
}

func TestChunkDocumentNil(t *testing.T) {
	chunker := NewChunker(500, 50)
	if chunks := chunker.ChunkDocument(nil); chunks != nil {
		t.Errorf("expected nil for nil document")
	}
}

func TestWithTokenCounter(t *testing.T) {
	chunker := NewChunker(5, 0).WithTokenCounter(func(text string) int {
		return len(strings.Fields(text))
	})

	if got := chunker.CountTokens("one two three"); got != 3 {
		t.Errorf("expected 3 tokens with word counter, got %d", got)
	}
}
