// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lead_server/core/domain"
)

// LeadAdapter implements out.LeadRepository using PostgreSQL.
type LeadAdapter struct {
	db *sqlx.DB
}

// NewLeadAdapter creates a new LeadAdapter.
func NewLeadAdapter(db *sqlx.DB) *LeadAdapter {
	return &LeadAdapter{db: db}
}

// leadSelectColumns lists the columns read back for lead rows. The embedding
// vector is cast to text so it can be parsed without a vector-aware driver.
const leadSelectColumns = `
	id, message_id, conversation_id, sender_email, sender_name, company_name,
	subject, body, lead_status, is_duplicate, duplicate_of_id, parent_lead_id,
	product_types, specific_ingredients, delivery_formats,
	certifications_requested, estimated_quantity, timeline_urgency,
	embedding::text as embedding, received_at, created_at, updated_at`

type leadRow struct {
	ID             int64          `db:"id"`
	MessageID      string         `db:"message_id"`
	ConversationID uuid.NullUUID  `db:"conversation_id"`
	SenderEmail    string         `db:"sender_email"`
	SenderName     sql.NullString `db:"sender_name"`
	CompanyName    sql.NullString `db:"company_name"`
	Subject        string         `db:"subject"`
	Body           string         `db:"body"`
	Status         string         `db:"lead_status"`
	IsDuplicate    bool           `db:"is_duplicate"`
	DuplicateOfID  sql.NullInt64  `db:"duplicate_of_id"`
	ParentLeadID   sql.NullInt64  `db:"parent_lead_id"`

	ProductTypes            pq.StringArray `db:"product_types"`
	SpecificIngredients     pq.StringArray `db:"specific_ingredients"`
	DeliveryFormats         pq.StringArray `db:"delivery_formats"`
	CertificationsRequested pq.StringArray `db:"certifications_requested"`
	EstimatedQuantity       sql.NullString `db:"estimated_quantity"`
	TimelineUrgency         sql.NullString `db:"timeline_urgency"`

	Embedding  sql.NullString `db:"embedding"`
	ReceivedAt time.Time      `db:"received_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r *leadRow) toEntity() *domain.Lead {
	lead := &domain.Lead{
		ID:                      r.ID,
		MessageID:               r.MessageID,
		SenderEmail:             r.SenderEmail,
		Subject:                 r.Subject,
		Body:                    r.Body,
		Status:                  domain.LeadStatus(r.Status),
		IsDuplicate:             r.IsDuplicate,
		ProductTypes:            r.ProductTypes,
		SpecificIngredients:     r.SpecificIngredients,
		DeliveryFormats:         r.DeliveryFormats,
		CertificationsRequested: r.CertificationsRequested,
		ReceivedAt:              r.ReceivedAt,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}

	if r.ConversationID.Valid {
		id := r.ConversationID.UUID
		lead.ConversationID = &id
	}
	if r.SenderName.Valid {
		lead.SenderName = r.SenderName.String
	}
	if r.CompanyName.Valid {
		lead.CompanyName = r.CompanyName.String
	}
	if r.DuplicateOfID.Valid {
		id := r.DuplicateOfID.Int64
		lead.DuplicateOfID = &id
	}
	if r.ParentLeadID.Valid {
		id := r.ParentLeadID.Int64
		lead.ParentLeadID = &id
	}
	if r.EstimatedQuantity.Valid {
		lead.EstimatedQuantity = r.EstimatedQuantity.String
	}
	if r.TimelineUrgency.Valid {
		lead.TimelineUrgency = r.TimelineUrgency.String
	}
	if r.Embedding.Valid {
		lead.Embedding = parseVector(r.Embedding.String)
	}

	return lead
}

// Create inserts a lead and returns its id.
func (a *LeadAdapter) Create(ctx context.Context, lead *domain.Lead) (int64, error) {
	query := `
		INSERT INTO leads
			(message_id, conversation_id, sender_email, sender_name, company_name,
			 subject, body, lead_status, is_duplicate, duplicate_of_id,
			 parent_lead_id, product_types, specific_ingredients, delivery_formats,
			 certifications_requested, estimated_quantity, timeline_urgency,
			 received_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, NOW(), NOW())
		RETURNING id`

	var id int64
	err := a.db.QueryRowxContext(ctx, query,
		lead.MessageID,
		lead.ConversationID,
		lead.SenderEmail,
		nullString(lead.SenderName),
		nullString(lead.CompanyName),
		lead.Subject,
		lead.Body,
		string(lead.Status),
		lead.IsDuplicate,
		lead.DuplicateOfID,
		lead.ParentLeadID,
		pq.StringArray(lead.ProductTypes),
		pq.StringArray(lead.SpecificIngredients),
		pq.StringArray(lead.DeliveryFormats),
		pq.StringArray(lead.CertificationsRequested),
		nullString(lead.EstimatedQuantity),
		nullString(lead.TimelineUrgency),
		lead.ReceivedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID fetches one lead.
func (a *LeadAdapter) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	var row leadRow
	err := a.db.QueryRowxContext(ctx,
		`SELECT `+leadSelectColumns+` FROM leads WHERE id = $1`, id,
	).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// RecentFromOtherSenders returns leads received since the cutoff from senders
// other than senderEmail, newest first.
func (a *LeadAdapter) RecentFromOtherSenders(ctx context.Context, senderEmail string, since time.Time, limit int) ([]*domain.Lead, error) {
	rows, err := a.db.QueryxContext(ctx, `
		SELECT `+leadSelectColumns+`
		FROM leads
		WHERE received_at >= $1 AND sender_email != $2
		ORDER BY received_at DESC
		LIMIT $3`, since, senderEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*domain.Lead
	for rows.Next() {
		var row leadRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		leads = append(leads, row.toEntity())
	}
	return leads, rows.Err()
}

// LatestFromSender returns the newest non-duplicate lead from the sender
// since the cutoff, or nil when there is none.
func (a *LeadAdapter) LatestFromSender(ctx context.Context, senderEmail string, since time.Time) (*domain.Lead, error) {
	var row leadRow
	err := a.db.QueryRowxContext(ctx, `
		SELECT `+leadSelectColumns+`
		FROM leads
		WHERE sender_email = $1 AND received_at >= $2 AND is_duplicate = FALSE
		ORDER BY received_at DESC
		LIMIT 1`, senderEmail, since,
	).StructScan(&row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// SetEmbedding stores the body embedding for a lead.
func (a *LeadAdapter) SetEmbedding(ctx context.Context, id int64, embedding []float32) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE leads
		SET embedding = $1::vector, updated_at = NOW()
		WHERE id = $2`, formatVector(embedding), id)
	return err
}

// UpdateStatus moves a lead to a new lifecycle status.
func (a *LeadAdapter) UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE leads
		SET lead_status = $1, updated_at = NOW()
		WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// formatVector renders a float32 slice in pgvector literal form.
func formatVector(v []float32) string {
	buf := make([]byte, 0, len(v)*13+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'f', 6, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}

// parseVector parses the text form of a pgvector value.
func parseVector(s string) []float32 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}
