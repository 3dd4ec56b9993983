package rag

import (
	"context"
	"sort"
	"sync"

	"lead_server/core/domain"
)

// MemoryIndex is an in-memory ChunkIndex. It backs tests and development
// without Postgres, with the same ordering semantics as VectorStore:
// descending similarity, insertion order on ties.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []*domain.Chunk
	nextID int64
}

// NewMemoryIndex creates an empty in-memory chunk index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{nextID: 1}
}

// InsertBatch inserts chunks as active entries.
func (m *MemoryIndex) InsertBatch(_ context.Context, chunks []*domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chunk := range chunks {
		chunk.ID = m.nextID
		chunk.IsActive = true
		m.nextID++
		m.chunks = append(m.chunks, chunk)
	}
	return nil
}

// DeactivateDocument marks all active chunks of a document inactive.
func (m *MemoryIndex) DeactivateDocument(_ context.Context, documentName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	for _, chunk := range m.chunks {
		if chunk.DocumentName == documentName && chunk.IsActive {
			chunk.IsActive = false
			affected++
		}
	}
	return affected, nil
}

// Search scores every active chunk against the query embedding.
func (m *MemoryIndex) Search(_ context.Context, embedding []float32, opts *ChunkSearchOptions) ([]*ScoredChunk, error) {
	if opts == nil {
		opts = &ChunkSearchOptions{}
	}
	limit := opts.Limit
	if limit == 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*ScoredChunk
	for _, chunk := range m.chunks {
		if !chunk.IsActive || len(chunk.Embedding) == 0 {
			continue
		}
		if len(opts.Categories) > 0 && !containsCategory(opts.Categories, chunk.Category) {
			continue
		}
		similarity := CosineSimilarity(embedding, chunk.Embedding)
		if opts.MinSimilarity > 0 && similarity < opts.MinSimilarity {
			continue
		}
		results = append(results, &ScoredChunk{Chunk: chunk, Similarity: similarity})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats counts the active entries per category.
func (m *MemoryIndex) Stats(_ context.Context) (*IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &IndexStats{ByCategory: make(map[domain.DocumentCategory]int64)}
	documents := make(map[string]struct{})
	for _, chunk := range m.chunks {
		if !chunk.IsActive {
			continue
		}
		stats.ActiveChunks++
		stats.ByCategory[chunk.Category]++
		documents[chunk.DocumentName] = struct{}{}
	}
	stats.ActiveDocuments = int64(len(documents))
	return stats, nil
}

func containsCategory(categories []domain.DocumentCategory, c domain.DocumentCategory) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}
