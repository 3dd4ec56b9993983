package rag

import (
	"regexp"
	"strings"

	"lead_server/core/domain"
)

// paragraphSplit matches blank-line paragraph boundaries.
var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// TokenCounter counts tokens in a text. The default is the deterministic
// character heuristic (length / 4); an exact tokenizer can be injected where
// one is available. Whichever counter is used must stay fixed within one run
// so size and overlap semantics remain stable.
type TokenCounter func(text string) int

// HeuristicTokenCounter approximates one token per four characters.
func HeuristicTokenCounter(text string) int {
	return len(text) / 4
}

// Chunker splits document text into bounded, overlapping token windows.
// It is a pure function over its inputs; empty or whitespace-only input
// yields an empty chunk sequence, never an error.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	counter      TokenCounter

	// charsPerToken scales token units to character windows for raw
	// token-window splitting under the heuristic counter.
	charsPerToken int
}

// NewChunker creates a chunker with the given target size and overlap, both
// in token units.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Chunker{
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		counter:       HeuristicTokenCounter,
		charsPerToken: 4,
	}
}

// WithTokenCounter replaces the token counter, e.g. with an exact tokenizer.
func (c *Chunker) WithTokenCounter(fn TokenCounter) *Chunker {
	if fn != nil {
		c.counter = fn
	}
	return c
}

// CountTokens counts tokens using the configured counter.
func (c *Chunker) CountTokens(text string) int {
	return c.counter(text)
}

// SplitByTokens splits text into raw overlapping token windows, ignoring
// paragraph structure. Used for single paragraphs that alone exceed the
// target size. Consecutive windows overlap by the configured overlap.
func (c *Chunker) SplitByTokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.CountTokens(text) <= c.chunkSize {
		return []string{text}
	}

	charSize := c.chunkSize * c.charsPerToken
	charOverlap := c.chunkOverlap * c.charsPerToken
	step := charSize - charOverlap

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + charSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// SplitByParagraphs splits text on blank-line boundaries and accumulates
// paragraphs into chunks up to the target size. A single paragraph larger
// than the target size is token-split on its own, bypassing paragraph logic.
func (c *Chunker) SplitByParagraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.CountTokens(text) <= c.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	paragraphs := paragraphSplit.Split(text, -1)

	var chunks []string
	var current string

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if c.CountTokens(para) > c.chunkSize {
			// Oversized atomic paragraph: flush the buffer, then window-split.
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, c.SplitByTokens(para)...)
			continue
		}

		candidate := para
		if current != "" {
			candidate = current + "\n\n" + para
		}

		if c.CountTokens(candidate) > c.chunkSize {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = para
		} else {
			current = candidate
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// ChunkDocument splits a document into embedding-ready chunks. When sections
// are present each section is chunked independently, so no chunk spans two
// sections. The ordinal index runs across the whole document.
func (c *Chunker) ChunkDocument(doc *domain.Document) []*domain.Chunk {
	if doc == nil {
		return nil
	}

	var chunks []*domain.Chunk
	ordinal := 0

	appendChunks := func(texts []string, sectionTitle string) {
		for _, text := range texts {
			chunks = append(chunks, &domain.Chunk{
				DocumentName: doc.FileName,
				Category:     doc.Category,
				SectionTitle: sectionTitle,
				ChunkIndex:   ordinal,
				Text:         text,
				TokenCount:   c.CountTokens(text),
				Metadata:     doc.Metadata,
				Version:      1,
			})
			ordinal++
		}
	}

	if len(doc.Sections) == 0 {
		appendChunks(c.SplitByParagraphs(doc.FullText), "")
		return chunks
	}

	for _, section := range doc.Sections {
		if strings.TrimSpace(section.Content) == "" {
			continue
		}
		appendChunks(c.SplitByParagraphs(section.Content), section.Title)
	}
	return chunks
}
