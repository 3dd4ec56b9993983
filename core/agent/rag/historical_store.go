package rag

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead_server/core/domain"
)

// ScoredExample pairs a historical example with its similarity to a query.
type ScoredExample struct {
	Example    *domain.HistoricalExample
	Similarity float64
}

// ExampleStore persists inquiry/response pairs with vector search.
type ExampleStore interface {
	Insert(ctx context.Context, example *domain.HistoricalExample) error
	Search(ctx context.Context, embedding []float32, limit int) ([]*ScoredExample, error)
	Deactivate(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// HistoricalStore is the Postgres ExampleStore.
type HistoricalStore struct {
	db *pgxpool.Pool
}

// NewHistoricalStore creates a Postgres-backed example store.
func NewHistoricalStore(db *pgxpool.Pool) *HistoricalStore {
	return &HistoricalStore{db: db}
}

// Insert stores an example as an active row.
func (s *HistoricalStore) Insert(ctx context.Context, example *domain.HistoricalExample) error {
	traits, err := json.Marshal(example.Traits)
	if err != nil {
		return err
	}

	return s.db.QueryRow(ctx, `
		INSERT INTO historical_response_examples
			(inquiry_lead_id, inquiry_subject, inquiry_body, inquiry_sender_email,
			 response_subject, response_body, response_date, embedding,
			 response_metadata, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, NOW())
		RETURNING id
	`,
		example.InquiryLeadID,
		example.InquirySubject,
		example.InquiryBody,
		example.InquirySenderEmail,
		example.ResponseSubject,
		example.ResponseBody,
		example.ResponseDate,
		pgVector(example.Embedding),
		traits,
	).Scan(&example.ID)
}

// Search returns the top active examples by descending similarity. The
// similarity floor is applied by the caller, after the limit, matching the
// retrieval contract.
func (s *HistoricalStore) Search(ctx context.Context, embedding []float32, limit int) ([]*ScoredExample, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, inquiry_lead_id, inquiry_subject, inquiry_body,
			inquiry_sender_email, response_subject, response_body, response_date,
			1 - (embedding <=> $1) as similarity
		FROM historical_response_examples
		WHERE is_active = TRUE
		AND embedding IS NOT NULL
		ORDER BY embedding <=> $1, id
		LIMIT $2
	`, pgVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ScoredExample
	for rows.Next() {
		example := &domain.HistoricalExample{IsActive: true}
		var similarity float64
		if err := rows.Scan(
			&example.ID,
			&example.InquiryLeadID,
			&example.InquirySubject,
			&example.InquiryBody,
			&example.InquirySenderEmail,
			&example.ResponseSubject,
			&example.ResponseBody,
			&example.ResponseDate,
			&similarity,
		); err != nil {
			return nil, err
		}
		results = append(results, &ScoredExample{Example: example, Similarity: similarity})
	}
	return results, rows.Err()
}

// Deactivate soft-deletes one example.
func (s *HistoricalStore) Deactivate(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE historical_response_examples
		SET is_active = FALSE
		WHERE id = $1
	`, id)
	return err
}

// Count returns the number of active examples.
func (s *HistoricalStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM historical_response_examples
		WHERE is_active = TRUE
	`).Scan(&count)
	return count, err
}

// MemoryExampleStore is an in-memory ExampleStore for tests and development.
type MemoryExampleStore struct {
	mu       sync.RWMutex
	examples []*domain.HistoricalExample
	nextID   int64
}

// NewMemoryExampleStore creates an empty in-memory example store.
func NewMemoryExampleStore() *MemoryExampleStore {
	return &MemoryExampleStore{nextID: 1}
}

func (m *MemoryExampleStore) Insert(_ context.Context, example *domain.HistoricalExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	example.ID = m.nextID
	example.IsActive = true
	m.nextID++
	m.examples = append(m.examples, example)
	return nil
}

func (m *MemoryExampleStore) Search(_ context.Context, embedding []float32, limit int) ([]*ScoredExample, error) {
	if limit <= 0 {
		limit = 3
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*ScoredExample
	for _, example := range m.examples {
		if !example.IsActive || len(example.Embedding) == 0 {
			continue
		}
		results = append(results, &ScoredExample{
			Example:    example,
			Similarity: CosineSimilarity(embedding, example.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryExampleStore) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, example := range m.examples {
		if example.ID == id {
			example.IsActive = false
		}
	}
	return nil
}

func (m *MemoryExampleStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, example := range m.examples {
		if example.IsActive {
			count++
		}
	}
	return count, nil
}
