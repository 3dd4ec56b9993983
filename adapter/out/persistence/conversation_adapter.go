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

// ConversationAdapter implements out.ConversationRepository using PostgreSQL.
type ConversationAdapter struct {
	db *sqlx.DB
}

// NewConversationAdapter creates a new ConversationAdapter.
func NewConversationAdapter(db *sqlx.DB) *ConversationAdapter {
	return &ConversationAdapter{db: db}
}

type conversationRow struct {
	ID              uuid.UUID      `db:"id"`
	Subject         string         `db:"thread_subject"`
	Participants    pq.StringArray `db:"participants"`
	FirstMessageID  string         `db:"initial_message_id"`
	LatestMessageID string         `db:"last_message_id"`
	StartedAt       time.Time      `db:"started_at"`
	LastActivityAt  time.Time      `db:"last_activity_at"`
}

func (r *conversationRow) toEntity() *domain.Conversation {
	return &domain.Conversation{
		ID:              r.ID,
		Subject:         r.Subject,
		Participants:    r.Participants,
		FirstMessageID:  r.FirstMessageID,
		LatestMessageID: r.LatestMessageID,
		StartedAt:       r.StartedAt,
		LastActivityAt:  r.LastActivityAt,
	}
}

// Create inserts a conversation.
func (a *ConversationAdapter) Create(ctx context.Context, conv *domain.Conversation) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO conversations
			(id, thread_subject, participants, initial_message_id,
			 last_message_id, started_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		conv.ID,
		conv.Subject,
		pq.StringArray(conv.Participants),
		conv.FirstMessageID,
		conv.LatestMessageID,
		conv.StartedAt,
		conv.LastActivityAt,
	)
	return err
}

// GetByID fetches one conversation.
func (a *ConversationAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var row conversationRow
	err := a.db.QueryRowxContext(ctx, `
		SELECT id, thread_subject, participants, initial_message_id,
			last_message_id, started_at, last_activity_at
		FROM conversations
		WHERE id = $1`, id,
	).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// Touch records a newly appended message. GREATEST keeps last_activity_at
// monotonic even if messages arrive out of order.
func (a *ConversationAdapter) Touch(ctx context.Context, id uuid.UUID, latestMessageID string, at time.Time) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_id = $1,
			last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $3`, latestMessageID, at, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
