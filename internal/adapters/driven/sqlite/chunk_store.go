package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
	"github.com/bookwise-labs/bookwise-core/internal/vectormath"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS document_chunks (
    id          TEXT PRIMARY KEY,
    book_id     TEXT NOT NULL,
    chapter_id  TEXT NOT NULL DEFAULT '',
    chunk_index INTEGER NOT NULL,
    content     TEXT NOT NULL,
    embedding   BLOB NOT NULL,
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_chunks_book
    ON document_chunks (book_id);
`

// ChunkStore implements driven.ChunkStore on an embedded SQLite
// database. Embeddings are stored as little-endian float32 blobs and
// similarity search is a brute-force cosine scan, which is adequate
// for single-user corpora.
type ChunkStore struct {
	db *sql.DB
}

// NewChunkStore opens (creating if needed) the database at path.
// Use ":memory:" for an ephemeral store.
func NewChunkStore(ctx context.Context, path string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The embedded driver serializes writes; a single connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ChunkStore{db: db}, nil
}

// UpsertBatch saves all chunks in a single transaction
func (s *ChunkStore) UpsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, book_id, chapter_id, chunk_index, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
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
			encodeEmbedding(chunk.Embedding),
			string(metadata),
			chunk.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Search scans the candidate rows and ranks them by cosine similarity,
// most similar first, capped at q.Limit.
func (s *ChunkStore) Search(ctx context.Context, embedding []float32, q domain.SearchQuery) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, chapter_id, content, embedding, metadata
		FROM document_chunks
		WHERE (? = '' OR book_id = ?)
		  AND (? = '' OR chapter_id = ?)
		ORDER BY book_id, chunk_index
	`, q.BookID, q.BookID, q.ChapterID, q.ChapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var blob []byte
		var metadata string
		if err := rows.Scan(&r.ID, &r.BookID, &r.ChapterID, &r.Content, &blob, &metadata); err != nil {
			return nil, err
		}

		similarity := float64(vectormath.CosineSimilarity(embedding, decodeEmbedding(blob)))
		if similarity < q.Threshold {
			continue
		}
		r.Similarity = similarity

		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for chunk %s: %w", r.ID, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return results, nil
}

// DeleteByBook deletes all chunks for a book
func (s *ChunkStore) DeleteByBook(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE book_id = ?`, bookID)
	return err
}

// CountByBook returns the number of stored chunks for a book
func (s *ChunkStore) CountByBook(ctx context.Context, bookID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE book_id = ?`, bookID).Scan(&count)
	return count, err
}

// HealthCheck verifies the store is reachable
func (s *ChunkStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a vector as little-endian float32 bytes
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian float32 blob
func decodeEmbedding(blob []byte) []float32 {
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding
}
