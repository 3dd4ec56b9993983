package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeClient is a scriptable EmbeddingClient. Vectors encode the input index
// so order preservation is checkable.
type fakeClient struct {
	batchCalls  [][]string
	singleCalls []string
	failBatch   bool
	failTexts   map[string]bool
}

func (c *fakeClient) Embedding(_ context.Context, text string) ([]float32, error) {
	c.singleCalls = append(c.singleCalls, text)
	if c.failTexts[text] {
		return nil, errors.New("item failed")
	}
	return []float32{float32(len(text))}, nil
}

func (c *fakeClient) EmbeddingBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls = append(c.batchCalls, texts)
	if c.failBatch {
		return nil, errors.New("batch failed")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (c *fakeClient) Dimension() int { return 1 }

func TestEmbedEmptyText(t *testing.T) {
	embedder := NewEmbedder(&fakeClient{}, nil, 20, time.Millisecond)

	if _, err := embedder.Embed(context.Background(), "   "); err != ErrEmptyText {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestEmbedManyPreservesOrder(t *testing.T) {
	client := &fakeClient{}
	embedder := NewEmbedder(client, nil, 20, time.Millisecond)

	texts := []string{"a", "bb", "ccc", "dddd"}
	embeddings, err := embedder.EmbedMany(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	for i, text := range texts {
		if embeddings[i][0] != float32(len(text)) {
			t.Errorf("position %d: order not preserved", i)
		}
	}
}

func TestEmbedManyBatchCap(t *testing.T) {
	client := &fakeClient{}
	embedder := NewEmbedder(client, nil, 3, time.Millisecond)

	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	if _, err := embedder.EmbedMany(context.Background(), texts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.batchCalls) != 3 {
		t.Fatalf("expected 3 batches for 8 texts with cap 3, got %d", len(client.batchCalls))
	}
	for i, batch := range client.batchCalls {
		if len(batch) > 3 {
			t.Errorf("batch %d exceeds cap: %d texts", i, len(batch))
		}
	}
}

func TestEmbedManyBatchFailureFallsBackPerItem(t *testing.T) {
	client := &fakeClient{
		failBatch: true,
		failTexts: map[string]bool{"bad": true},
	}
	embedder := NewEmbedder(client, nil, 20, time.Millisecond)

	embeddings, err := embedder.EmbedMany(context.Background(), []string{"good", "bad", "also good"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embeddings[0] == nil || embeddings[2] == nil {
		t.Error("healthy items lost to a failed neighbour")
	}
	if embeddings[1] != nil {
		t.Error("failed item should yield nil at its position")
	}
	if len(client.singleCalls) != 3 {
		t.Errorf("expected 3 per-item retries, got %d", len(client.singleCalls))
	}
}

func TestEmbedManySkipsBlankTexts(t *testing.T) {
	client := &fakeClient{}
	embedder := NewEmbedder(client, nil, 20, time.Millisecond)

	embeddings, err := embedder.EmbedMany(context.Background(), []string{"a", "  ", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embeddings[1] != nil {
		t.Error("blank text should yield nil without a provider call")
	}
	if len(client.batchCalls) != 1 || len(client.batchCalls[0]) != 2 {
		t.Errorf("blank text was sent to the provider")
	}
}

func TestEmbedManyEmptyInput(t *testing.T) {
	embedder := NewEmbedder(&fakeClient{}, nil, 20, time.Millisecond)

	embeddings, err := embedder.EmbedMany(context.Background(), nil)
	if err != nil || embeddings != nil {
		t.Errorf("expected nil, nil for empty input, got %v, %v", embeddings, err)
	}
}

func TestPrepareText(t *testing.T) {
	embedder := NewEmbedder(&fakeClient{}, nil, 20, time.Millisecond)

	got := embedder.PrepareText("Subject", "Body text", 0)
	if got != "Subject\n\nBody text" {
		t.Errorf("unexpected join: %q", got)
	}

	truncated := embedder.PrepareText("S", "0123456789", 5)
	if len(truncated) != 5 {
		t.Errorf("expected truncation to 5 chars, got %d", len(truncated))
	}
}
