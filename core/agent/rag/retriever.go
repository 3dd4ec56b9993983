package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/pkg/logger"
)

// noContextMessage is returned when nothing in the knowledge base clears
// the similarity bar for a query.
const noContextMessage = "No relevant context found in knowledge base."

// perCategoryLimit bounds each category search during context assembly.
const perCategoryLimit = 5

// Retriever answers semantic queries against the knowledge chunk index.
// Retrieval failures degrade to empty results rather than errors: a lead
// pipeline without context is better than a stalled one.
type Retriever struct {
	embedder out.EmbeddingProvider
	index    ChunkIndex
	topK     int
}

// NewRetriever creates a retriever with the given default result count.
func NewRetriever(embedder out.EmbeddingProvider, index ChunkIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = 10
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

// RetrievalRequest describes one similarity query.
type RetrievalRequest struct {
	Query         string
	Categories    []domain.DocumentCategory
	Limit         int
	MinSimilarity float64
}

// RetrievalResult is one matching chunk with its score.
type RetrievalResult struct {
	Text         string                  `json:"text"`
	DocumentName string                  `json:"document_name"`
	Category     domain.DocumentCategory `json:"category"`
	SectionTitle string                  `json:"section_title"`
	ChunkIndex   int                     `json:"chunk_index"`
	Similarity   float64                 `json:"similarity"`
	TokenCount   int                     `json:"token_count"`
}

// Retrieve embeds the query and searches the index. An embedding failure
// logs and returns an empty result set.
func (r *Retriever) Retrieve(ctx context.Context, req *RetrievalRequest) []*RetrievalResult {
	embedding, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		logger.WithError(err).Error("failed to embed retrieval query")
		return nil
	}

	limit := req.Limit
	if limit == 0 {
		limit = r.topK
	}

	scored, err := r.index.Search(ctx, embedding, &ChunkSearchOptions{
		Categories:    req.Categories,
		Limit:         limit,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		logger.WithError(err).Error("chunk similarity search failed")
		return nil
	}

	results := make([]*RetrievalResult, len(scored))
	for i, s := range scored {
		results[i] = &RetrievalResult{
			Text:         s.Chunk.Text,
			DocumentName: s.Chunk.DocumentName,
			Category:     s.Chunk.Category,
			SectionTitle: s.Chunk.SectionTitle,
			ChunkIndex:   s.Chunk.ChunkIndex,
			Similarity:   s.Similarity,
			TokenCount:   s.Chunk.TokenCount,
		}
	}
	return results
}

// AssembleContext builds a token-budgeted context block for a query. When
// categories are given, each is searched separately and the merged results
// are re-ranked; otherwise one unfiltered search runs. Chunks are appended
// in descending similarity until one would exceed the budget, at which point
// assembly stops even if smaller chunks remain further down.
func (r *Retriever) AssembleContext(ctx context.Context, query string, maxTokens int, categories []domain.DocumentCategory) string {
	var all []*RetrievalResult

	if len(categories) > 0 {
		for _, category := range categories {
			all = append(all, r.Retrieve(ctx, &RetrievalRequest{
				Query:      query,
				Categories: []domain.DocumentCategory{category},
				Limit:      perCategoryLimit,
			})...)
		}
	} else {
		all = r.Retrieve(ctx, &RetrievalRequest{Query: query})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Similarity > all[j].Similarity
	})

	var parts []string
	currentTokens := 0

	for _, result := range all {
		chunkTokens := len(result.Text) / 4

		if currentTokens+chunkTokens > maxTokens {
			break
		}

		section := result.SectionTitle
		if section == "" {
			section = "N/A"
		}

		parts = append(parts, fmt.Sprintf(
			"--- Source: %s | Section: %s | Similarity: %.3f ---\n%s",
			result.DocumentName, section, result.Similarity, result.Text,
		))
		currentTokens += chunkTokens
	}

	if len(parts) == 0 {
		return noContextMessage
	}

	logger.WithFields(map[string]any{
		"chunks": len(parts),
		"tokens": currentTokens,
	}).Debug("assembled retrieval context")

	return strings.Join(parts, "\n\n")
}
