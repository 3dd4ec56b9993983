package rag

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead_server/core/domain"
)

// ChunkSearchOptions filters a chunk similarity search.
type ChunkSearchOptions struct {
	Categories    []domain.DocumentCategory
	Limit         int
	MinSimilarity float64
}

// ScoredChunk pairs a chunk with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk      *domain.Chunk
	Similarity float64
}

// ChunkIndex is the storage surface the retriever and indexer work against.
// *VectorStore is the production implementation; MemoryIndex backs tests and
// credential-less development.
type ChunkIndex interface {
	InsertBatch(ctx context.Context, chunks []*domain.Chunk) error
	DeactivateDocument(ctx context.Context, documentName string) (int64, error)
	Search(ctx context.Context, embedding []float32, opts *ChunkSearchOptions) ([]*ScoredChunk, error)
	Stats(ctx context.Context) (*IndexStats, error)
}

// IndexStats summarizes the active knowledge base.
type IndexStats struct {
	ActiveChunks    int64                            `json:"active_chunks"`
	ActiveDocuments int64                            `json:"active_documents"`
	ByCategory      map[domain.DocumentCategory]int64 `json:"by_category"`
}

// VectorStore persists knowledge chunks in Postgres with pgvector similarity
// search. Re-ingesting a document deactivates its previous chunks rather than
// deleting them, so stale versions remain auditable.
type VectorStore struct {
	db *pgxpool.Pool
}

// NewVectorStore creates a Postgres-backed chunk index.
func NewVectorStore(db *pgxpool.Pool) *VectorStore {
	return &VectorStore{db: db}
}

// InsertBatch inserts chunks as active rows.
func (s *VectorStore) InsertBatch(ctx context.Context, chunks []*domain.Chunk) error {
	query := `
		INSERT INTO knowledge_chunks
			(document_name, category, section_title, chunk_index, content,
			 token_count, embedding, metadata, version, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, NOW())
		RETURNING id
	`

	for _, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}

		err = s.db.QueryRow(ctx, query,
			chunk.DocumentName,
			string(chunk.Category),
			chunk.SectionTitle,
			chunk.ChunkIndex,
			chunk.Text,
			chunk.TokenCount,
			pgVector(chunk.Embedding),
			metadata,
			chunk.Version,
		).Scan(&chunk.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeactivateDocument soft-deletes all active chunks of a document and
// returns how many rows were affected.
func (s *VectorStore) DeactivateDocument(ctx context.Context, documentName string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE knowledge_chunks
		SET is_active = FALSE
		WHERE document_name = $1 AND is_active = TRUE
	`, documentName)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Search returns active chunks ordered by descending similarity. Ties are
// broken by insertion order via the id column.
func (s *VectorStore) Search(ctx context.Context, embedding []float32, opts *ChunkSearchOptions) ([]*ScoredChunk, error) {
	if opts == nil {
		opts = &ChunkSearchOptions{}
	}
	if opts.Limit == 0 {
		opts.Limit = 10
	}

	query := `
		SELECT id, document_name, category, section_title, chunk_index,
			content, token_count, 1 - (embedding <=> $1) as similarity
		FROM knowledge_chunks
		WHERE is_active = TRUE
		AND embedding IS NOT NULL
	`

	args := []any{pgVector(embedding)}

	if len(opts.Categories) > 0 {
		categories := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			categories[i] = string(c)
		}
		args = append(args, categories)
		query += ` AND category = ANY($` + strconv.Itoa(len(args)) + `)`
	}

	if opts.MinSimilarity > 0 {
		query += ` AND 1 - (embedding <=> $1) >= ` + strconv.FormatFloat(opts.MinSimilarity, 'f', 4, 64)
	}

	args = append(args, opts.Limit)
	query += ` ORDER BY embedding <=> $1, id LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ScoredChunk
	for rows.Next() {
		chunk := &domain.Chunk{IsActive: true}
		var category string
		var similarity float64
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentName,
			&category,
			&chunk.SectionTitle,
			&chunk.ChunkIndex,
			&chunk.Text,
			&chunk.TokenCount,
			&similarity,
		); err != nil {
			return nil, err
		}
		chunk.Category = domain.DocumentCategory(category)
		results = append(results, &ScoredChunk{Chunk: chunk, Similarity: similarity})
	}

	return results, rows.Err()
}

// Stats counts the active knowledge base per category.
func (s *VectorStore) Stats(ctx context.Context) (*IndexStats, error) {
	stats := &IndexStats{ByCategory: make(map[domain.DocumentCategory]int64)}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT document_name)
		FROM knowledge_chunks
		WHERE is_active = TRUE
	`).Scan(&stats.ActiveChunks, &stats.ActiveDocuments)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT category, COUNT(*)
		FROM knowledge_chunks
		WHERE is_active = TRUE
		GROUP BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[domain.DocumentCategory(category)] = count
	}
	return stats, rows.Err()
}

// pgVector converts a float32 slice to the pgvector literal format.
func pgVector(v []float32) string {
	if len(v) == 0 {
		return "[0]"
	}

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
