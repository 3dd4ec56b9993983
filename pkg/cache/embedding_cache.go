// Package cache provides Redis-backed caching utilities.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// EmbeddingCache memoizes embedding vectors keyed by a hash of the input
// text. Embeddings are deterministic per model, so entries can live long.
type EmbeddingCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewEmbeddingCache creates an embedding cache.
func NewEmbeddingCache(client *redis.Client) *EmbeddingCache {
	return &EmbeddingCache{
		client: client,
		prefix: "emb:",
		ttl:    7 * 24 * time.Hour,
	}
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for text, or (nil, false) on a miss.
// Redis errors are treated as misses; the cache is an optimization only.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.key(text)).Result()
	if err != nil {
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, false
	}
	return embedding, true
}

// Set stores an embedding for text. Failures are ignored.
func (c *EmbeddingCache) Set(ctx context.Context, text string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(text), data, c.ttl)
}

// Delete drops the cached embedding for text.
func (c *EmbeddingCache) Delete(ctx context.Context, text string) error {
	return c.client.Del(ctx, c.key(text)).Err()
}
