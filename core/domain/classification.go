package domain

import "github.com/google/uuid"

// EmailCategory is the classifier's verdict for an inbound message.
// Exactly one category is assigned per message.
type EmailCategory string

const (
	CategoryNewInquiry      EmailCategory = "new_inquiry"
	CategoryReplyToUs       EmailCategory = "reply_to_us"
	CategoryDuplicate       EmailCategory = "duplicate"
	CategoryFollowUpInquiry EmailCategory = "follow_up_inquiry"
)

// Classification is the classifier's output: the category plus whatever
// linkage metadata the winning check produced. Only the fields relevant to
// the category are populated.
type Classification struct {
	Category EmailCategory `json:"category"`

	// reply_to_us
	OriginalMessageID string     `json:"original_message_id,omitempty"`
	OriginalLeadID    *int64     `json:"original_lead_id,omitempty"`
	ConversationID    *uuid.UUID `json:"conversation_id,omitempty"`

	// duplicate
	DuplicateOfLeadID *int64  `json:"duplicate_of_lead_id,omitempty"`
	SimilarityScore   float64 `json:"similarity_score,omitempty"`
	IsForward         bool    `json:"is_forward,omitempty"`

	// follow_up_inquiry
	ParentLeadID         *int64 `json:"parent_lead_id,omitempty"`
	DaysSinceLastContact int    `json:"days_since_last_contact,omitempty"`

	// Diagnostic trail of which checks fired or declined.
	Signals []string `json:"signals,omitempty"`

	// BodyEmbedding is the embedding computed for the inbound body during
	// classification. Callers persist it with the lead so later runs can
	// compare against this message without re-embedding it.
	BodyEmbedding []float32 `json:"-"`
}
