// Package intake turns classified inbound emails into persisted leads,
// messages and conversation linkage.
package intake

import (
	"context"

	"github.com/google/uuid"

	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/core/service/classification"
	"lead_server/pkg/logger"
)

// Service runs the intake flow: classify, then persist per category.
type Service struct {
	classifier    *classification.Classifier
	leads         out.LeadRepository
	messages      out.MessageRepository
	conversations out.ConversationRepository
	archive       out.BodyArchive
}

// NewService creates an intake service. archive may be nil when body
// archiving is disabled.
func NewService(
	classifier *classification.Classifier,
	leads out.LeadRepository,
	messages out.MessageRepository,
	conversations out.ConversationRepository,
	archive out.BodyArchive,
) *Service {
	return &Service{
		classifier:    classifier,
		leads:         leads,
		messages:      messages,
		conversations: conversations,
		archive:       archive,
	}
}

// Result is what one intake run produced.
type Result struct {
	Classification *domain.Classification `json:"classification"`
	LeadID         *int64                 `json:"lead_id,omitempty"`
	MessageID      int64                  `json:"message_db_id"`
	ConversationID *uuid.UUID             `json:"conversation_id,omitempty"`
}

// Process classifies an inbound email and persists the outcome.
//
// Category handling:
//   - reply_to_us: no new lead; the message joins the existing conversation
//     and the original lead moves to customer_replied.
//   - duplicate: a leaf lead flagged is_duplicate with its duplicate-of link;
//     it gets no conversation of its own.
//   - follow_up_inquiry: a new lead linked to its parent and the parent's
//     conversation.
//   - new_inquiry: a fresh lead with a fresh conversation.
func (s *Service) Process(ctx context.Context, email *domain.InboundEmail) (*Result, error) {
	result := s.classifier.Classify(ctx, email)

	var (
		leadID         *int64
		conversationID *uuid.UUID
		err            error
	)

	switch result.Category {
	case domain.CategoryReplyToUs:
		conversationID, err = s.handleReply(ctx, email, result)
	case domain.CategoryDuplicate:
		leadID, err = s.handleDuplicate(ctx, email, result)
	case domain.CategoryFollowUpInquiry:
		leadID, conversationID, err = s.handleFollowUp(ctx, email, result)
	default:
		leadID, conversationID, err = s.handleNewInquiry(ctx, email, result)
	}
	if err != nil {
		return nil, err
	}

	receivedAt := email.ReceivedAt
	msg := &domain.Message{
		MessageID:      email.MessageID,
		ConversationID: conversationID,
		LeadID:         leadID,
		Direction:      domain.DirectionInbound,
		Headers:        email.Headers,
		FromEmail:      email.SenderEmail,
		ToEmail:        email.ToEmail,
		Subject:        email.Subject,
		Body:           email.Body,
		ReceivedAt:     &receivedAt,
	}
	msgID, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}

	if conversationID != nil {
		if err := s.conversations.Touch(ctx, *conversationID, email.MessageID, email.ReceivedAt); err != nil {
			logger.WithError(err).Warn("failed to touch conversation %s", conversationID)
		}
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, email.MessageID, "", email.Body); err != nil {
			logger.WithError(err).Warn("failed to archive body for %s", email.MessageID)
		}
	}

	return &Result{
		Classification: result,
		LeadID:         leadID,
		MessageID:      msgID,
		ConversationID: conversationID,
	}, nil
}

func (s *Service) handleReply(ctx context.Context, email *domain.InboundEmail, result *domain.Classification) (*uuid.UUID, error) {
	if result.OriginalLeadID != nil {
		if err := s.leads.UpdateStatus(ctx, *result.OriginalLeadID, domain.LeadStatusCustomerReplied); err != nil {
			logger.WithError(err).Warn("failed to update lead %d status", *result.OriginalLeadID)
		}
	}
	return result.ConversationID, nil
}

func (s *Service) handleDuplicate(ctx context.Context, email *domain.InboundEmail, result *domain.Classification) (*int64, error) {
	lead := s.leadFromEmail(email, result)
	lead.IsDuplicate = true
	lead.DuplicateOfID = result.DuplicateOfLeadID

	if err := lead.ValidateLinkage(); err != nil {
		return nil, err
	}
	return s.createLead(ctx, lead)
}

func (s *Service) handleFollowUp(ctx context.Context, email *domain.InboundEmail, result *domain.Classification) (*int64, *uuid.UUID, error) {
	lead := s.leadFromEmail(email, result)
	lead.ParentLeadID = result.ParentLeadID
	lead.ConversationID = result.ConversationID

	id, err := s.createLead(ctx, lead)
	if err != nil {
		return nil, nil, err
	}
	return id, result.ConversationID, nil
}

func (s *Service) handleNewInquiry(ctx context.Context, email *domain.InboundEmail, result *domain.Classification) (*int64, *uuid.UUID, error) {
	conv := &domain.Conversation{
		ID:              uuid.New(),
		Subject:         email.Subject,
		Participants:    []string{email.SenderEmail},
		FirstMessageID:  email.MessageID,
		LatestMessageID: email.MessageID,
		StartedAt:       email.ReceivedAt,
		LastActivityAt:  email.ReceivedAt,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, nil, err
	}

	lead := s.leadFromEmail(email, result)
	lead.ConversationID = &conv.ID

	id, err := s.createLead(ctx, lead)
	if err != nil {
		return nil, nil, err
	}
	return id, &conv.ID, nil
}

func (s *Service) leadFromEmail(email *domain.InboundEmail, result *domain.Classification) *domain.Lead {
	return &domain.Lead{
		MessageID:   email.MessageID,
		SenderEmail: email.SenderEmail,
		SenderName:  email.SenderName,
		Subject:     email.Subject,
		Body:        email.Body,
		Status:      domain.LeadStatusNew,
		Embedding:   result.BodyEmbedding,
		ReceivedAt:  email.ReceivedAt,
	}
}

func (s *Service) createLead(ctx context.Context, lead *domain.Lead) (*int64, error) {
	id, err := s.leads.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	lead.ID = id

	// Stored alongside the lead so future classification runs compare against
	// this message without a provider call.
	if len(lead.Embedding) > 0 {
		if err := s.leads.SetEmbedding(ctx, id, lead.Embedding); err != nil {
			logger.WithError(err).Warn("failed to store embedding for lead %d", id)
		}
	}
	return &id, nil
}
