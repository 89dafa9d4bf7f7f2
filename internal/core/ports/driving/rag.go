package driving

import (
	"context"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
)

// RAGService exposes the indexing and question-answering pipeline to
// the route layer.
type RAGService interface {
	// IndexDocument chunks, embeds and persists a document's content.
	// Fails with domain.ErrInvalidInput before any work begins when
	// bookID or content is missing.
	IndexDocument(ctx context.Context, bookID, content string, metadata domain.Metadata) (*domain.IndexResult, error)

	// RetrieveContext returns the ranked context chunks for a query.
	// Zero results is not an error.
	RetrieveContext(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.SearchResult, error)

	// Answer produces a buffered grounded answer. When no context is
	// found it returns a fixed informational message, not an error.
	Answer(ctx context.Context, question string, opts domain.RetrieveOptions) (string, error)

	// AnswerStream produces an incremental grounded answer. It fails
	// fast with domain.ErrNoContext when retrieval is empty, before any
	// generation stream is opened.
	AnswerStream(ctx context.Context, question string, opts domain.RetrieveOptions, onDelta driven.StreamFunc) error

	// DeleteDocument removes all chunks for a book. Callers re-indexing
	// a book invoke this first; indexing itself never deletes.
	DeleteDocument(ctx context.Context, bookID string) error

	// ChunkCount returns the number of stored chunks for a book
	ChunkCount(ctx context.Context, bookID string) (int, error)
}
