package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lead_server/core/domain"
)

// LeadRepository is the outbound port for lead persistence. The classifier
// only reads through it; writes happen in the intake service.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Lead, error)

	// RecentFromOtherSenders returns leads received since the cutoff whose
	// sender differs from senderEmail, newest first. Candidates for the
	// cross-sender duplicate check.
	RecentFromOtherSenders(ctx context.Context, senderEmail string, since time.Time, limit int) ([]*domain.Lead, error)

	// LatestFromSender returns the most recent non-duplicate lead from the
	// given sender since the cutoff, or nil when there is none. Candidate for
	// the follow-up check.
	LatestFromSender(ctx context.Context, senderEmail string, since time.Time) (*domain.Lead, error)

	// SetEmbedding stores the body embedding computed at intake so future
	// classification runs can skip re-embedding this lead.
	SetEmbedding(ctx context.Context, id int64, embedding []float32) error

	UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) error
}

// MessageRepository is the outbound port for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) (int64, error)

	// FindOutboundByMessageIDs returns the first stored outbound message whose
	// RFC message identifier is in ids, or nil when none match. This is the
	// reply-to-us header-chain lookup.
	FindOutboundByMessageIDs(ctx context.Context, ids []string) (*domain.Message, error)
}

// ConversationRepository is the outbound port for conversation threading.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)

	// Touch advances last-activity bookkeeping for an appended message.
	// LastActivityAt never moves backwards.
	Touch(ctx context.Context, id uuid.UUID, latestMessageID string, at time.Time) error
}

// BodyArchive stores raw message bodies outside the relational store.
type BodyArchive interface {
	Save(ctx context.Context, messageID string, html, text string) error
	Get(ctx context.Context, messageID string) (html, text string, err error)
}
