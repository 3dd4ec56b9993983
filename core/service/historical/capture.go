// Package historical captures human-authored responses as retrieval
// exemplars.
package historical

import (
	"context"
	"errors"
	"strings"
	"time"

	"lead_server/core/agent/rag"
	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/pkg/logger"
)

// embedLimit caps the inquiry text sent to the embedding provider.
const embedLimit = 1000

var ErrIncompletePair = errors.New("inquiry and response bodies are both required")

// CaptureService creates historical examples from inquiry/response pairs,
// whether from a bulk import or from an approved draft being sent. The
// inquiry embedding and response traits are derived once, here; they are
// never recomputed later.
type CaptureService struct {
	embedder out.EmbeddingProvider
	store    rag.ExampleStore
}

// NewCaptureService creates a capture service.
func NewCaptureService(embedder out.EmbeddingProvider, store rag.ExampleStore) *CaptureService {
	return &CaptureService{embedder: embedder, store: store}
}

// CaptureRequest is one inquiry/response pair to record.
type CaptureRequest struct {
	InquiryLeadID      *int64     `json:"inquiry_lead_id,omitempty"`
	InquirySubject     string     `json:"inquiry_subject"`
	InquiryBody        string     `json:"inquiry_body"`
	InquirySenderEmail string     `json:"inquiry_sender_email"`
	ResponseSubject    string     `json:"response_subject"`
	ResponseBody       string     `json:"response_body"`
	ResponseDate       *time.Time `json:"response_date,omitempty"`
}

// Capture embeds the inquiry, derives response traits and stores the pair.
func (s *CaptureService) Capture(ctx context.Context, req *CaptureRequest) (*domain.HistoricalExample, error) {
	if strings.TrimSpace(req.InquiryBody) == "" || strings.TrimSpace(req.ResponseBody) == "" {
		return nil, ErrIncompletePair
	}

	inquiryText := req.InquiryBody
	if len(inquiryText) > embedLimit {
		inquiryText = inquiryText[:embedLimit]
	}

	embedding, err := s.embedder.Embed(ctx, inquiryText)
	if err != nil {
		return nil, err
	}

	example := &domain.HistoricalExample{
		InquiryLeadID:      req.InquiryLeadID,
		InquirySubject:     req.InquirySubject,
		InquiryBody:        req.InquiryBody,
		InquirySenderEmail: req.InquirySenderEmail,
		ResponseSubject:    req.ResponseSubject,
		ResponseBody:       req.ResponseBody,
		ResponseDate:       req.ResponseDate,
		Embedding:          embedding,
		Traits:             domain.AnalyzeResponseTraits(req.ResponseBody),
	}

	if err := s.store.Insert(ctx, example); err != nil {
		return nil, err
	}

	logger.WithField("example_id", example.ID).Info("captured historical response example")
	return example, nil
}

// Deactivate soft-deletes one example.
func (s *CaptureService) Deactivate(ctx context.Context, id int64) error {
	return s.store.Deactivate(ctx, id)
}
