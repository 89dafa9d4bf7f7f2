package domain

import (
	"strings"
	"time"
)

// Metadata holds auxiliary descriptive fields attached to a chunk
// (title, author, chunk count, ...). The core never interprets the
// values beyond passing them through to the store.
type Metadata map[string]string

// Clone returns a copy of the metadata map. A nil receiver yields an
// empty, writable map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DocumentChunk is the unit of retrievable content: a bounded substring
// of a source document together with its embedding vector.
type DocumentChunk struct {
	ID         string    `json:"id"`
	BookID     string    `json:"book_id"`
	ChapterID  string    `json:"chapter_id,omitempty"`
	ChunkIndex int       `json:"chunk_index"` // 0-based position within the book's chunk sequence
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the invariants every persisted chunk must hold.
func (c *DocumentChunk) Validate() error {
	if c.BookID == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(c.Content) == "" {
		return ErrInvalidInput
	}
	if len(c.Embedding) == 0 {
		return ErrInvalidInput
	}
	return nil
}

// SearchResult is a read-only projection returned by similarity search.
// It is constructed per query and never persisted.
type SearchResult struct {
	ID         string   `json:"id"`
	BookID     string   `json:"book_id"`
	ChapterID  string   `json:"chapter_id,omitempty"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata,omitempty"`
	Similarity float64  `json:"similarity"` // higher = more relevant
}

// SearchQuery configures a similarity search against the chunk store.
type SearchQuery struct {
	Threshold float64 `json:"threshold"` // minimum similarity for a result
	Limit     int     `json:"limit"`     // result-count cap
	BookID    string  `json:"book_id,omitempty"`
	ChapterID string  `json:"chapter_id,omitempty"`
}

// IndexResult summarises a completed indexing call.
type IndexResult struct {
	BookID     string `json:"book_id"`
	ChunkCount int    `json:"chunk_count"`
}
