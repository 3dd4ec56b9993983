package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"lead_server/pkg/cache"
	"lead_server/pkg/logger"
)

// ErrEmptyText is returned when there is nothing to embed.
var ErrEmptyText = errors.New("empty text")

// EmbeddingClient is the provider call surface the embedder needs.
// *llm.Client satisfies it.
type EmbeddingClient interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
	EmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Embedder wraps the provider client with batching discipline and an
// optional Redis cache. Batches are capped to stay under provider payload
// limits, and a small delay between batches respects rate limits.
type Embedder struct {
	client     EmbeddingClient
	cache      *cache.EmbeddingCache
	batchSize  int
	batchDelay time.Duration
}

// NewEmbedder creates an embedder with the given batch cap and inter-batch
// delay. cacheStore may be nil.
func NewEmbedder(client EmbeddingClient, cacheStore *cache.EmbeddingCache, batchSize int, batchDelay time.Duration) *Embedder {
	if batchSize <= 0 {
		batchSize = 20
	}
	if batchDelay <= 0 {
		batchDelay = 500 * time.Millisecond
	}
	return &Embedder{
		client:     client,
		cache:      cacheStore,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// Dimension returns the provider's fixed vector dimensionality.
func (e *Embedder) Dimension() int {
	return e.client.Dimension()
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if e.cache != nil {
		if embedding, ok := e.cache.Get(ctx, text); ok {
			return embedding, nil
		}
	}

	embedding, err := e.client.Embedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && embedding != nil {
		e.cache.Set(ctx, text, embedding)
	}
	return embedding, nil
}

// EmbedMany generates embeddings for multiple texts, preserving input order.
// Individual failures yield a nil vector at that position without aborting
// the batch. Cached texts are not re-sent to the provider.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))

	// Resolve cache hits and collect the positions that still need the
	// provider.
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if e.cache != nil {
			if embedding, ok := e.cache.Get(ctx, text); ok {
				embeddings[i] = embedding
				continue
			}
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		batchTexts := make([]string, len(batch))
		for j, idx := range batch {
			batchTexts[j] = texts[idx]
		}

		results, err := e.client.EmbeddingBatch(ctx, batchTexts)
		if err != nil || len(results) != len(batch) {
			// Whole-batch failure: fall back to per-item calls so one bad
			// item cannot sink its neighbours.
			logger.WithError(err).Warn("batch embedding failed, retrying %d texts individually", len(batch))
			results = make([][]float32, len(batch))
			for j, idx := range batch {
				embedding, itemErr := e.client.Embedding(ctx, texts[idx])
				if itemErr != nil {
					continue
				}
				results[j] = embedding
			}
		}

		for j, idx := range batch {
			embeddings[idx] = results[j]
			if e.cache != nil && results[j] != nil {
				e.cache.Set(ctx, texts[idx], results[j])
			}
		}

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return embeddings, ctx.Err()
			case <-time.After(e.batchDelay):
			}
		}
	}

	return embeddings, nil
}

// PrepareText joins subject and body and truncates for embedding.
func (e *Embedder) PrepareText(subject, body string, maxLen int) string {
	text := subject + "\n\n" + body
	if maxLen > 0 && len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
