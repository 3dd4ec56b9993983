package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus represents the lifecycle status of a lead.
type LeadStatus string

const (
	LeadStatusNew              LeadStatus = "new"
	LeadStatusResponded        LeadStatus = "responded"
	LeadStatusCustomerReplied  LeadStatus = "customer_replied"
	LeadStatusConversationOpen LeadStatus = "conversation_active"
	LeadStatusClosed           LeadStatus = "closed"
	LeadStatusSpam             LeadStatus = "spam"
)

// Lead is one classified inbound inquiry.
//
// Linkage invariants:
//   - IsDuplicate implies DuplicateOfID != nil, and a duplicate lead is a leaf:
//     it may never be the target of another duplicate or follow-up link.
//   - ParentLeadID always points at a lead from the same sender.
type Lead struct {
	ID             int64      `json:"id"`
	MessageID      string     `json:"message_id"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`

	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	Status        LeadStatus `json:"status"`
	IsDuplicate   bool       `json:"is_duplicate"`
	DuplicateOfID *int64     `json:"duplicate_of_id,omitempty"`
	ParentLeadID  *int64     `json:"parent_lead_id,omitempty"`

	// Structured extraction results (filled by the extraction agent, consumed
	// by historical-example retrieval when building queries).
	ProductTypes            []string `json:"product_types,omitempty"`
	SpecificIngredients     []string `json:"specific_ingredients,omitempty"`
	DeliveryFormats         []string `json:"delivery_formats,omitempty"`
	CertificationsRequested []string `json:"certifications_requested,omitempty"`
	EstimatedQuantity       string   `json:"estimated_quantity,omitempty"`
	TimelineUrgency         string   `json:"timeline_urgency,omitempty"`

	// Embedding of the body, computed once at intake so later classification
	// runs do not have to re-embed this lead as a candidate.
	Embedding []float32 `json:"-"`

	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CanBeLinkTarget reports whether this lead may be the target of a duplicate
// or follow-up link. Duplicates are leaves in the link graph.
func (l *Lead) CanBeLinkTarget() bool {
	return !l.IsDuplicate
}

// ValidateLinkage checks the lead's link invariants. Violations are caller
// bugs, not states the engine repairs.
func (l *Lead) ValidateLinkage() error {
	if l.IsDuplicate && l.DuplicateOfID == nil {
		return ErrDuplicateWithoutSource
	}
	return nil
}
