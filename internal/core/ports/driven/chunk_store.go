package driven

import (
	"context"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
)

// ChunkStore persists document chunks with their embeddings and answers
// nearest-neighbour queries filtered by book/chapter.
type ChunkStore interface {
	// UpsertBatch saves all chunks in a single transaction
	UpsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) error

	// Search returns chunks whose similarity to the query embedding
	// meets q.Threshold, most similar first, capped at q.Limit.
	// Zero matches is a valid, non-error outcome.
	Search(ctx context.Context, embedding []float32, q domain.SearchQuery) ([]domain.SearchResult, error)

	// DeleteByBook deletes all chunks for a book
	DeleteByBook(ctx context.Context, bookID string) error

	// CountByBook returns the number of stored chunks for a book
	CountByBook(ctx context.Context, bookID string) (int, error)

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error
}
