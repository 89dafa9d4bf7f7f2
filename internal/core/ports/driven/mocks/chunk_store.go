package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/vectormath"
)

// MockChunkStore is an in-memory mock implementation of ChunkStore for
// testing. Search ranks stored chunks by cosine similarity unless a
// canned result list was pinned with SetResults.
type MockChunkStore struct {
	mu     sync.RWMutex
	byBook map[string][]*domain.DocumentChunk

	// canned, when set, is returned by Search verbatim
	canned  []domain.SearchResult
	pinned  bool
	failErr error

	upsertCalls  int
	searchCalls  int
	lastQuery    domain.SearchQuery
	lastVector   []float32
	deletedBooks []string
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		byBook: make(map[string][]*domain.DocumentChunk),
	}
}

func (m *MockChunkStore) UpsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.failErr != nil {
		return m.failErr
	}
	for _, chunk := range chunks {
		m.byBook[chunk.BookID] = append(m.byBook[chunk.BookID], chunk)
	}
	return nil
}

func (m *MockChunkStore) Search(ctx context.Context, embedding []float32, q domain.SearchQuery) ([]domain.SearchResult, error) {
	m.mu.Lock()
	m.searchCalls++
	m.lastQuery = q
	m.lastVector = embedding
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failErr != nil {
		return nil, m.failErr
	}
	if m.pinned {
		return m.canned, nil
	}

	var results []domain.SearchResult
	for bookID, chunks := range m.byBook {
		if q.BookID != "" && q.BookID != bookID {
			continue
		}
		for _, c := range chunks {
			if q.ChapterID != "" && q.ChapterID != c.ChapterID {
				continue
			}
			sim := float64(vectormath.CosineSimilarity(embedding, c.Embedding))
			if sim < q.Threshold {
				continue
			}
			results = append(results, domain.SearchResult{
				ID:         c.ID,
				BookID:     c.BookID,
				ChapterID:  c.ChapterID,
				Content:    c.Content,
				Metadata:   c.Metadata,
				Similarity: sim,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (m *MockChunkStore) DeleteByBook(ctx context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.byBook, bookID)
	m.deletedBooks = append(m.deletedBooks, bookID)
	return nil
}

func (m *MockChunkStore) CountByBook(ctx context.Context, bookID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failErr != nil {
		return 0, m.failErr
	}
	return len(m.byBook[bookID]), nil
}

func (m *MockChunkStore) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failErr
}

// Helper methods for testing

// SetResults pins the result list returned by every Search call
func (m *MockChunkStore) SetResults(results []domain.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canned = results
	m.pinned = true
}

// Fail makes every store operation fail with err
func (m *MockChunkStore) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Chunks returns the stored chunks for a book in insertion order
func (m *MockChunkStore) Chunks(bookID string) []*domain.DocumentChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.DocumentChunk, len(m.byBook[bookID]))
	copy(out, m.byBook[bookID])
	return out
}

// UpsertCalls returns how many batch writes were attempted
func (m *MockChunkStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls
}

// SearchCalls returns how many searches were issued
func (m *MockChunkStore) SearchCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchCalls
}

// LastQuery returns the parameters of the most recent search
func (m *MockChunkStore) LastQuery() domain.SearchQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// DeletedBooks returns the bookIDs passed to DeleteByBook
func (m *MockChunkStore) DeletedBooks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deletedBooks))
	copy(out, m.deletedBooks)
	return out
}
