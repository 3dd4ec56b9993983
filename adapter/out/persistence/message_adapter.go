package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lead_server/core/domain"
)

// MessageAdapter implements out.MessageRepository using PostgreSQL.
type MessageAdapter struct {
	db *sqlx.DB
}

// NewMessageAdapter creates a new MessageAdapter.
func NewMessageAdapter(db *sqlx.DB) *MessageAdapter {
	return &MessageAdapter{db: db}
}

const messageSelectColumns = `
	id, message_id, conversation_id, lead_id, direction, in_reply_to,
	reference_ids, is_likely_forward, from_email, to_email, subject, body,
	sent_at, received_at, created_at`

type messageRow struct {
	ID              int64          `db:"id"`
	MessageID       string         `db:"message_id"`
	ConversationID  uuid.NullUUID  `db:"conversation_id"`
	LeadID          sql.NullInt64  `db:"lead_id"`
	Direction       string         `db:"direction"`
	InReplyTo       sql.NullString `db:"in_reply_to"`
	ReferenceIDs    pq.StringArray `db:"reference_ids"`
	IsLikelyForward bool           `db:"is_likely_forward"`
	FromEmail       string         `db:"from_email"`
	ToEmail         sql.NullString `db:"to_email"`
	Subject         string         `db:"subject"`
	Body            string         `db:"body"`
	SentAt          sql.NullTime   `db:"sent_at"`
	ReceivedAt      sql.NullTime   `db:"received_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r *messageRow) toEntity() *domain.Message {
	msg := &domain.Message{
		ID:        r.ID,
		MessageID: r.MessageID,
		Direction: domain.Direction(r.Direction),
		Headers: domain.HeaderBundle{
			InReplyTo:       r.InReplyTo.String,
			References:      r.ReferenceIDs,
			IsLikelyForward: r.IsLikelyForward,
		},
		FromEmail: r.FromEmail,
		ToEmail:   r.ToEmail.String,
		Subject:   r.Subject,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}

	if r.ConversationID.Valid {
		id := r.ConversationID.UUID
		msg.ConversationID = &id
	}
	if r.LeadID.Valid {
		id := r.LeadID.Int64
		msg.LeadID = &id
	}
	if r.SentAt.Valid {
		t := r.SentAt.Time
		msg.SentAt = &t
	}
	if r.ReceivedAt.Valid {
		t := r.ReceivedAt.Time
		msg.ReceivedAt = &t
	}

	return msg
}

// Create inserts a message and returns its id.
func (a *MessageAdapter) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	query := `
		INSERT INTO email_messages
			(message_id, conversation_id, lead_id, direction, in_reply_to,
			 reference_ids, is_likely_forward, from_email, to_email, subject,
			 body, sent_at, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id`

	var id int64
	err := a.db.QueryRowxContext(ctx, query,
		msg.MessageID,
		msg.ConversationID,
		msg.LeadID,
		string(msg.Direction),
		nullString(msg.Headers.InReplyTo),
		pq.StringArray(msg.Headers.References),
		msg.Headers.IsLikelyForward,
		msg.FromEmail,
		nullString(msg.ToEmail),
		msg.Subject,
		msg.Body,
		msg.SentAt,
		msg.ReceivedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindOutboundByMessageIDs returns the first stored outbound message whose
// RFC message identifier is in ids, or nil when none match.
func (a *MessageAdapter) FindOutboundByMessageIDs(ctx context.Context, ids []string) (*domain.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var row messageRow
	err := a.db.QueryRowxContext(ctx, `
		SELECT `+messageSelectColumns+`
		FROM email_messages
		WHERE message_id = ANY($1) AND direction = 'outbound'
		ORDER BY created_at DESC
		LIMIT 1`, pq.StringArray(ids),
	).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}
