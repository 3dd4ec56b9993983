package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"lead_server/core/agent/rag"
	"lead_server/core/domain"
	"lead_server/core/service/historical"
	"lead_server/pkg/apperr"
	"lead_server/pkg/response"
)

// HistoricalHandler handles historical example capture and retrieval.
type HistoricalHandler struct {
	capture   *historical.CaptureService
	retriever *rag.HistoricalRetriever
}

// NewHistoricalHandler creates a new HistoricalHandler.
func NewHistoricalHandler(capture *historical.CaptureService, retriever *rag.HistoricalRetriever) *HistoricalHandler {
	return &HistoricalHandler{
		capture:   capture,
		retriever: retriever,
	}
}

// Register registers historical example routes
func (h *HistoricalHandler) Register(router fiber.Router) {
	examples := router.Group("/historical")

	examples.Post("/examples", h.Create)
	examples.Delete("/examples/:id", h.Delete)
	examples.Post("/similar", h.FindSimilar)
	examples.Get("/count", h.Count)
}

// Create captures one inquiry/response pair as a retrieval exemplar.
func (h *HistoricalHandler) Create(c *fiber.Ctx) error {
	var req historical.CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	example, err := h.capture.Capture(c.Context(), &req)
	if err != nil {
		if err == historical.ErrIncompletePair {
			return apperr.BadRequest(err.Error())
		}
		return apperr.InternalWithError(err)
	}
	return response.Created(c, example)
}

// Delete soft-deletes one example.
func (h *HistoricalHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperr.BadRequest("invalid example ID")
	}

	if err := h.capture.Deactivate(c.Context(), id); err != nil {
		return apperr.DatabaseError("deactivate example", err)
	}
	return response.NoContent(c)
}

// SimilarRequest carries the inquiry fields used to build the search query.
type SimilarRequest struct {
	Body                    string   `json:"body"`
	ProductTypes            []string `json:"product_types,omitempty"`
	SpecificIngredients     []string `json:"specific_ingredients,omitempty"`
	DeliveryFormats         []string `json:"delivery_formats,omitempty"`
	CertificationsRequested []string `json:"certifications_requested,omitempty"`
	EstimatedQuantity       string   `json:"estimated_quantity,omitempty"`
	TimelineUrgency         string   `json:"timeline_urgency,omitempty"`
	Format                  bool     `json:"format"`
	MaxExamples             int      `json:"max_examples,omitempty"`
}

// FindSimilar retrieves the most similar historical examples for an inquiry.
func (h *HistoricalHandler) FindSimilar(c *fiber.Ctx) error {
	var req SimilarRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	lead := &domain.Lead{
		Body:                    req.Body,
		ProductTypes:            req.ProductTypes,
		SpecificIngredients:     req.SpecificIngredients,
		DeliveryFormats:         req.DeliveryFormats,
		CertificationsRequested: req.CertificationsRequested,
		EstimatedQuantity:       req.EstimatedQuantity,
		TimelineUrgency:         req.TimelineUrgency,
	}

	matches := h.retriever.FindSimilar(c.Context(), lead)

	if req.Format {
		return response.OK(c, fiber.Map{
			"count":     len(matches),
			"formatted": rag.FormatExamplesForAgent(matches, req.MaxExamples),
		})
	}
	return response.OK(c, fiber.Map{
		"count":   len(matches),
		"matches": matches,
	})
}

// Count reports the number of active examples.
func (h *HistoricalHandler) Count(c *fiber.Ctx) error {
	count, err := h.retriever.Count(c.Context())
	if err != nil {
		return apperr.DatabaseError("count examples", err)
	}
	return response.OK(c, fiber.Map{"count": count})
}
