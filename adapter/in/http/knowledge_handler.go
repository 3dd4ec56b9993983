// Package http provides the fiber HTTP handlers.
package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"lead_server/core/agent/rag"
	"lead_server/core/domain"
	"lead_server/pkg/apperr"
	"lead_server/pkg/metrics"
	"lead_server/pkg/response"
)

// KnowledgeHandler handles knowledge base ingestion and retrieval requests.
type KnowledgeHandler struct {
	indexer   *rag.IndexerService
	retriever *rag.Retriever
	latency   *metrics.LatencyRegistry
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(indexer *rag.IndexerService, retriever *rag.Retriever, latency *metrics.LatencyRegistry) *KnowledgeHandler {
	return &KnowledgeHandler{
		indexer:   indexer,
		retriever: retriever,
		latency:   latency,
	}
}

// Register registers knowledge routes
func (h *KnowledgeHandler) Register(router fiber.Router) {
	knowledge := router.Group("/knowledge")

	knowledge.Post("/documents", h.IngestDocument)
	knowledge.Delete("/documents/:name", h.DeleteDocument)
	knowledge.Get("/search", h.Search)
	knowledge.Post("/context", h.Context)
	knowledge.Get("/stats", h.Stats)
}

// IngestDocumentRequest is the HTTP request to ingest a document.
type IngestDocumentRequest struct {
	FileName string           `json:"file_name"`
	Category string           `json:"category"`
	FullText string           `json:"full_text"`
	Sections []SectionRequest `json:"sections,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

type SectionRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// IngestDocument chunks, embeds and stores a document, replacing any prior
// active version of the same document.
func (h *KnowledgeHandler) IngestDocument(c *fiber.Ctx) error {
	var req IngestDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.FileName == "" {
		return apperr.MissingField("file_name")
	}

	doc := &domain.Document{
		FileName: req.FileName,
		Category: domain.DocumentCategory(req.Category),
		FullText: req.FullText,
		Metadata: req.Metadata,
	}
	for _, s := range req.Sections {
		doc.Sections = append(doc.Sections, domain.DocumentSection{
			Title:   s.Title,
			Content: s.Content,
		})
	}

	start := time.Now()
	result, err := h.indexer.IngestDocument(c.Context(), doc)
	if err != nil {
		if err == rag.ErrNoChunks {
			return apperr.BadRequest("document produced no chunks")
		}
		return apperr.InternalWithError(err)
	}
	h.latency.Record("knowledge_ingest", time.Since(start))

	return response.Created(c, result)
}

// DeleteDocument soft-deletes a document from the knowledge base.
func (h *KnowledgeHandler) DeleteDocument(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return apperr.MissingField("name")
	}

	deactivated, err := h.indexer.RemoveDocument(c.Context(), name)
	if err != nil {
		return apperr.DatabaseError("deactivate document", err)
	}
	return response.OK(c, fiber.Map{
		"document_name": name,
		"deactivated":   deactivated,
	})
}

// Search runs a similarity query over active chunks.
func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return apperr.MissingField("q")
	}

	req := &rag.RetrievalRequest{Query: query}

	if category := c.Query("category"); category != "" {
		req.Categories = []domain.DocumentCategory{domain.DocumentCategory(category)}
	}
	if limit := c.Query("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			req.Limit = v
		}
	}
	if min := c.Query("min_similarity"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			req.MinSimilarity = v
		}
	}

	start := time.Now()
	results := h.retriever.Retrieve(c.Context(), req)
	h.latency.Record("knowledge_search", time.Since(start))

	return response.OK(c, fiber.Map{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// ContextRequest is the HTTP request for token-budgeted context assembly.
type ContextRequest struct {
	Query      string   `json:"query"`
	MaxTokens  int      `json:"max_tokens"`
	Categories []string `json:"categories,omitempty"`
}

// Context assembles a source-attributed context block for a query.
func (h *KnowledgeHandler) Context(c *fiber.Ctx) error {
	var req ContextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.Query == "" {
		return apperr.MissingField("query")
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 3000
	}

	var categories []domain.DocumentCategory
	for _, cat := range req.Categories {
		categories = append(categories, domain.DocumentCategory(cat))
	}

	start := time.Now()
	context := h.retriever.AssembleContext(c.Context(), req.Query, req.MaxTokens, categories)
	h.latency.Record("knowledge_context", time.Since(start))

	return response.OK(c, fiber.Map{
		"query":   req.Query,
		"context": context,
	})
}

// Stats reports the active knowledge base counts.
func (h *KnowledgeHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.indexer.Stats(c.Context())
	if err != nil {
		return apperr.DatabaseError("knowledge stats", err)
	}
	return response.OK(c, stats)
}
