package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
)

// MockGenerationService is a mock implementation of GenerationService
// for testing. It records every prompt it receives.
type MockGenerationService struct {
	mu       sync.Mutex
	model    string
	response string
	deltas   []string
	jsonBody string
	failErr  error

	prompts     []string
	streamCalls int
}

// NewMockGenerationService creates a new MockGenerationService
func NewMockGenerationService() *MockGenerationService {
	return &MockGenerationService{
		model:    "mock-generation-model",
		response: "mock answer",
		deltas:   []string{"mock ", "answer"},
		jsonBody: "{}",
	}
}

func (m *MockGenerationService) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.failErr != nil {
		return "", m.failErr
	}
	return m.response, nil
}

func (m *MockGenerationService) GenerateStream(ctx context.Context, prompt string, onDelta driven.StreamFunc) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.streamCalls++
	failErr := m.failErr
	deltas := make([]string, len(m.deltas))
	copy(deltas, m.deltas)
	m.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	for _, d := range deltas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockGenerationService) GenerateJSON(ctx context.Context, prompt string, schemaHint string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.failErr != nil {
		return m.failErr
	}
	return json.Unmarshal([]byte(m.jsonBody), out)
}

func (m *MockGenerationService) Model() string {
	return m.model
}

func (m *MockGenerationService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerationService) Close() error {
	return nil
}

// Helper methods for testing

// SetResponse pins the buffered response
func (m *MockGenerationService) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
}

// SetDeltas pins the streamed fragments
func (m *MockGenerationService) SetDeltas(deltas ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = deltas
}

// SetJSON pins the body decoded by GenerateJSON
func (m *MockGenerationService) SetJSON(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jsonBody = body
}

// Fail makes every generation call fail with err
func (m *MockGenerationService) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Prompts returns the prompts received so far
func (m *MockGenerationService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// StreamCalls returns how many streaming calls were opened
func (m *MockGenerationService) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}
