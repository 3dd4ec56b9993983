package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateWithoutSource is a data invariant violation: a lead flagged
	// as duplicate must carry a duplicate-of reference.
	ErrDuplicateWithoutSource = errors.New("duplicate lead without duplicate-of reference")
)

// Direction of an email message relative to the business.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// forwardPrefixes are the subject prefixes that mark a likely forward.
var forwardPrefixes = []string{"fwd:", "fw:", "forward:"}

// HeaderBundle carries the RFC 5322 thread-tracking headers of a message.
// Direction plus this bundle is the only evidence the classifier may use to
// prove a message is a reply to one of our own outbound messages.
type HeaderBundle struct {
	InReplyTo       string   `json:"in_reply_to,omitempty"`
	References      []string `json:"references,omitempty"`
	IsLikelyForward bool     `json:"is_likely_forward"`
}

// ReferencedIDs returns In-Reply-To plus every References identifier,
// with empty entries dropped.
func (h *HeaderBundle) ReferencedIDs() []string {
	ids := make([]string, 0, len(h.References)+1)
	if h.InReplyTo != "" {
		ids = append(ids, h.InReplyTo)
	}
	for _, ref := range h.References {
		if ref != "" {
			ids = append(ids, ref)
		}
	}
	return ids
}

// ParseReferences splits a raw References header into message identifiers.
// The header value may be space or newline separated.
func ParseReferences(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "\n", " ")
	return strings.Fields(raw)
}

// IsForwardSubject reports whether the subject starts with a forward prefix.
func IsForwardSubject(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	for _, prefix := range forwardPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// StripForwardPrefix removes a single leading Fwd:/Fw:/Forward: prefix.
func StripForwardPrefix(subject string) string {
	trimmed := strings.TrimSpace(subject)
	lower := strings.ToLower(trimmed)
	for _, prefix := range forwardPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(trimmed[len(prefix):])
		}
	}
	return trimmed
}

// Message is one inbound or outbound email.
type Message struct {
	ID             int64        `json:"id"`
	MessageID      string       `json:"message_id"`
	ConversationID *uuid.UUID   `json:"conversation_id,omitempty"`
	LeadID         *int64       `json:"lead_id,omitempty"`
	Direction      Direction    `json:"direction"`
	Headers        HeaderBundle `json:"headers"`

	FromEmail string `json:"from_email"`
	ToEmail   string `json:"to_email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`

	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// InboundEmail is the classifier's input: a clean parsed message handed over
// by the mail-transport collaborator.
type InboundEmail struct {
	MessageID   string       `json:"message_id"`
	SenderEmail string       `json:"sender_email"`
	SenderName  string       `json:"sender_name,omitempty"`
	ToEmail     string       `json:"to_email,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Headers     HeaderBundle `json:"headers"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// Conversation groups the messages of one ongoing exchange.
// LastActivityAt is monotonically non-decreasing; every appended message,
// inbound or outbound, advances it.
type Conversation struct {
	ID              uuid.UUID `json:"id"`
	Subject         string    `json:"subject"`
	Participants    []string  `json:"participants"`
	FirstMessageID  string    `json:"first_message_id"`
	LatestMessageID string    `json:"latest_message_id"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}
