package domain

import "time"

// DocumentCategory classifies a reference document in the knowledge base.
type DocumentCategory string

const (
	CategoryCatalog       DocumentCategory = "catalog"
	CategoryPricing       DocumentCategory = "pricing"
	CategoryCertification DocumentCategory = "certification"
	CategoryCapability    DocumentCategory = "capability"
	CategoryFAQ           DocumentCategory = "faq"
)

// ValidDocumentCategory reports whether c is one of the known categories.
func ValidDocumentCategory(c DocumentCategory) bool {
	switch c {
	case CategoryCatalog, CategoryPricing, CategoryCertification, CategoryCapability, CategoryFAQ:
		return true
	}
	return false
}

// DocumentSection is a titled slice of a source document. Section parsing
// happens upstream; the engine only receives the result.
type DocumentSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is the ingestion collaborator's hand-off format. The engine never
// parses source file formats itself.
type Document struct {
	FileName string            `json:"file_name"`
	Category DocumentCategory  `json:"category"`
	FullText string            `json:"full_text"`
	Sections []DocumentSection `json:"sections,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// Chunk is a bounded, embeddable slice of a source document.
//
// Chunks are immutable once stored except for the active flag: replacing or
// removing a document deactivates its chunks, it never destroys them.
// Every active chunk has a non-nil embedding.
type Chunk struct {
	ID           int64            `json:"id"`
	DocumentName string           `json:"document_name"`
	Category     DocumentCategory `json:"category"`
	SectionTitle string           `json:"section_title,omitempty"`
	ChunkIndex   int              `json:"chunk_index"`
	Text         string           `json:"text"`
	TokenCount   int              `json:"token_count"`
	Embedding    []float32        `json:"-"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	IsActive     bool             `json:"is_active"`
	Version      int              `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
}
