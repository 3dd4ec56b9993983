package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"lead_server/core/domain"
	"lead_server/core/service/intake"
	"lead_server/pkg/apperr"
	"lead_server/pkg/metrics"
	"lead_server/pkg/response"
)

// IntakeHandler handles inbound email classification and intake.
type IntakeHandler struct {
	intake  *intake.Service
	latency *metrics.LatencyRegistry
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(svc *intake.Service, latency *metrics.LatencyRegistry) *IntakeHandler {
	return &IntakeHandler{
		intake:  svc,
		latency: latency,
	}
}

// Register registers intake routes
func (h *IntakeHandler) Register(router fiber.Router) {
	group := router.Group("/intake")

	group.Post("/emails", h.ProcessEmail)
}

// InboundEmailRequest is the HTTP request to classify and persist an email.
// References may come in as a list or as the raw header value.
type InboundEmailRequest struct {
	MessageID     string    `json:"message_id"`
	SenderEmail   string    `json:"sender_email"`
	SenderName    string    `json:"sender_name,omitempty"`
	ToEmail       string    `json:"to_email,omitempty"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	InReplyTo     string    `json:"in_reply_to,omitempty"`
	References    []string  `json:"references,omitempty"`
	RawReferences string    `json:"raw_references,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

// ProcessEmail classifies one inbound email and persists the resulting lead,
// message and conversation linkage.
func (h *IntakeHandler) ProcessEmail(c *fiber.Ctx) error {
	var req InboundEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.MessageID == "" {
		return apperr.MissingField("message_id")
	}
	if req.SenderEmail == "" {
		return apperr.MissingField("sender_email")
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperr.MissingField("body")
	}

	references := req.References
	if len(references) == 0 && req.RawReferences != "" {
		references = domain.ParseReferences(req.RawReferences)
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	email := &domain.InboundEmail{
		MessageID:   req.MessageID,
		SenderEmail: req.SenderEmail,
		SenderName:  req.SenderName,
		ToEmail:     req.ToEmail,
		Subject:     req.Subject,
		Body:        req.Body,
		Headers: domain.HeaderBundle{
			InReplyTo:       req.InReplyTo,
			References:      references,
			IsLikelyForward: domain.IsForwardSubject(req.Subject),
		},
		ReceivedAt: receivedAt,
	}

	start := time.Now()
	result, err := h.intake.Process(c.Context(), email)
	if err != nil {
		return apperr.DatabaseError("process inbound email", err)
	}
	h.latency.Record("intake_classify", time.Since(start))

	return response.Created(c, result)
}
