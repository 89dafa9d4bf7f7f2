package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore on PostgreSQL with the
// pgvector extension. Similarity is cosine: 1 - (embedding <=> query).
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// UpsertBatch saves all chunks in a single transaction. Either every
// chunk is persisted or none are.
func (s *ChunkStore) UpsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO document_chunks (id, book_id, chapter_id, chunk_index, content, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::vector, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			metadata, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for chunk %s: %w", chunk.ID, err)
			}

			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.BookID,
				chunk.ChapterID,
				chunk.ChunkIndex,
				chunk.Content,
				vectorLiteral(chunk.Embedding),
				metadata,
				chunk.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Search returns chunks meeting the similarity threshold, most similar
// first, capped at q.Limit. Empty filters match everything.
func (s *ChunkStore) Search(ctx context.Context, embedding []float32, q domain.SearchQuery) ([]domain.SearchResult, error) {
	query := `
		SELECT id, book_id, chapter_id, content, metadata,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM document_chunks
		WHERE ($2 = '' OR book_id = $2)
		  AND ($3 = '' OR chapter_id = $3)
		  AND 1 - (embedding <=> $1::vector) >= $4
		ORDER BY embedding <=> $1::vector ASC
		LIMIT $5
	`

	rows, err := s.db.QueryContext(ctx, query,
		vectorLiteral(embedding), q.BookID, q.ChapterID, q.Threshold, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var metadata []byte
		if err := rows.Scan(&r.ID, &r.BookID, &r.ChapterID, &r.Content, &metadata, &r.Similarity); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for chunk %s: %w", r.ID, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteByBook deletes all chunks for a book
func (s *ChunkStore) DeleteByBook(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE book_id = $1`, bookID)
	return err
}

// CountByBook returns the number of stored chunks for a book
func (s *ChunkStore) CountByBook(ctx context.Context, bookID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE book_id = $1`, bookID).Scan(&count)
	return count, err
}

// HealthCheck verifies the store is reachable
func (s *ChunkStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// vectorLiteral renders an embedding in pgvector's input format
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
