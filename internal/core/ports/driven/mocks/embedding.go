package mocks

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for testing
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string

	// fixed maps exact input text to a canned embedding
	fixed map[string][]float32

	// failAt fails the request for the n-th embedded text (1-based, 0 = never)
	failAt  int
	failErr error

	// failQuery fails every EmbedQuery call when set
	failQuery error

	// delay is applied per Embed call to surface ordering bugs
	delay time.Duration

	embedCalls int
	queryCalls int
	seen       []string
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		model:      "mock-embedding-model",
		fixed:      make(map[string][]float32),
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i, text := range texts {
		m.embedCalls++
		m.seen = append(m.seen, text)
		if m.failAt > 0 && m.embedCalls == m.failAt {
			err := m.failErr
			if err == nil {
				err = context.DeadlineExceeded
			}
			return nil, err
		}
		result[i] = m.embeddingFor(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.failQuery != nil {
		return nil, m.failQuery
	}
	return m.embeddingFor(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// embeddingFor returns the canned embedding for text, or a
// deterministic hash-derived one. Callers hold m.mu.
func (m *MockEmbeddingService) embeddingFor(text string) []float32 {
	if v, ok := m.fixed[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

// SetFixed pins the embedding returned for an exact input text
func (m *MockEmbeddingService) SetFixed(text string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = embedding
	if len(embedding) > 0 {
		m.dimensions = len(embedding)
	}
}

// FailAt makes the n-th embedded text (1-based) fail with err
func (m *MockEmbeddingService) FailAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = n
	m.failErr = err
}

// FailQueries makes every EmbedQuery call fail with err
func (m *MockEmbeddingService) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failQuery = err
}

// SetDelay adds an artificial per-call delay
func (m *MockEmbeddingService) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetDimensions overrides the embedding dimensionality
func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dim
}

// EmbedCalls returns how many texts have been embedded
func (m *MockEmbeddingService) EmbedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls
}

// QueryCalls returns how many query embeddings were requested
func (m *MockEmbeddingService) QueryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// Seen returns the embedded texts in the order they were received
func (m *MockEmbeddingService) Seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.seen))
	copy(out, m.seen)
	return out
}
