package rag

import (
	"context"
	"errors"

	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/pkg/logger"
)

// ErrNoChunks is returned when a document yields nothing to index.
var ErrNoChunks = errors.New("document produced no chunks")

// IndexerService ingests knowledge documents: chunk, embed, replace.
type IndexerService struct {
	chunker  *Chunker
	embedder out.EmbeddingProvider
	index    ChunkIndex
}

// NewIndexerService creates a document indexer.
func NewIndexerService(chunker *Chunker, embedder out.EmbeddingProvider, index ChunkIndex) *IndexerService {
	return &IndexerService{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
	}
}

// IngestResult reports what one document ingestion did.
type IngestResult struct {
	DocumentName string `json:"document_name"`
	ChunksTotal  int    `json:"chunks_total"`
	ChunksStored int    `json:"chunks_stored"`
	Deactivated  int64  `json:"deactivated"`
}

// IngestDocument chunks and embeds a document, then replaces any previously
// active version. Chunks whose embedding failed are skipped rather than
// stored without a vector. Deactivation and insertion are separate
// statements, so a crash between them can briefly leave the document absent
// from search; re-running the ingestion repairs it.
func (s *IndexerService) IngestDocument(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	if !domain.ValidDocumentCategory(doc.Category) {
		return nil, errors.New("unknown document category: " + string(doc.Category))
	}

	chunks := s.chunker.ChunkDocument(doc)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}

	var storable []*domain.Chunk
	for i, chunk := range chunks {
		if i >= len(embeddings) || embeddings[i] == nil {
			logger.WithFields(map[string]any{
				"document": doc.FileName,
				"chunk":    chunk.ChunkIndex,
			}).Warn("skipping chunk with failed embedding")
			continue
		}
		chunk.Embedding = embeddings[i]
		storable = append(storable, chunk)
	}

	if len(storable) == 0 {
		return nil, ErrNoChunks
	}

	deactivated, err := s.index.DeactivateDocument(ctx, doc.FileName)
	if err != nil {
		return nil, err
	}

	if err := s.index.InsertBatch(ctx, storable); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]any{
		"document":    doc.FileName,
		"stored":      len(storable),
		"deactivated": deactivated,
	}).Info("document ingested")

	return &IngestResult{
		DocumentName: doc.FileName,
		ChunksTotal:  len(chunks),
		ChunksStored: len(storable),
		Deactivated:  deactivated,
	}, nil
}

// RemoveDocument soft-deletes a document from the index.
func (s *IndexerService) RemoveDocument(ctx context.Context, documentName string) (int64, error) {
	return s.index.DeactivateDocument(ctx, documentName)
}

// Stats reports the active knowledge base counts.
func (s *IndexerService) Stats(ctx context.Context) (*IndexStats, error) {
	return s.index.Stats(ctx)
}
