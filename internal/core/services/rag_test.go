package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bookwise-labs/bookwise-core/internal/chunker"
	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven/mocks"
	"github.com/bookwise-labs/bookwise-core/internal/runtime"
)

// testRAG wires a RAG service against fresh mocks
type testRAG struct {
	svc   *ragService
	store *mocks.MockChunkStore
	embed *mocks.MockEmbeddingService
	gen   *mocks.MockGenerationService
}

func newTestRAG(t *testing.T, cfg RAGConfig) *testRAG {
	t.Helper()

	store := mocks.NewMockChunkStore()
	embed := mocks.NewMockEmbeddingService()
	gen := mocks.NewMockGenerationService()

	services := runtime.NewServices(domain.NewRuntimeConfig("sqlite"))
	services.SetEmbeddingService(embed)
	services.SetGenerationService(gen)

	cfg.ChunkStore = store
	cfg.Services = services

	svc, err := NewRAGService(cfg)
	if err != nil {
		t.Fatalf("unexpected error creating service: %v", err)
	}

	return &testRAG{
		svc:   svc.(*ragService),
		store: store,
		embed: embed,
		gen:   gen,
	}
}

func TestIndexDocument_InvalidInput(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	cases := []struct {
		name    string
		bookID  string
		content string
	}{
		{"missing book id", "", "some content"},
		{"missing content", "book-1", ""},
		{"whitespace content", "book-1", "   \n\t  "},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rag.svc.IndexDocument(context.Background(), tt.bookID, tt.content, nil)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	// Validation failures must happen before any work begins.
	if rag.embed.EmbedCalls() != 0 {
		t.Errorf("expected no embedding calls, got %d", rag.embed.EmbedCalls())
	}
	if rag.store.UpsertCalls() != 0 {
		t.Errorf("expected no store writes, got %d", rag.store.UpsertCalls())
	}
}

func TestIndexDocument_OrderCorrelation(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{ChunkSize: 10, EmbedConcurrency: 3})

	// Three distinct chunks; the stub returns embeddings keyed by
	// input after an artificial delay, so completion order is not
	// arrival order.
	content := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10)
	rag.embed.SetFixed(strings.Repeat("a", 10), []float32{1, 0, 0})
	rag.embed.SetFixed(strings.Repeat("b", 10), []float32{0, 1, 0})
	rag.embed.SetFixed(strings.Repeat("c", 10), []float32{0, 0, 1})
	rag.embed.SetDelay(2 * time.Millisecond)

	result, err := rag.svc.IndexDocument(context.Background(), "book-1", content, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks, got %d", result.ChunkCount)
	}

	stored := rag.store.Chunks("book-1")
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored chunks, got %d", len(stored))
	}

	wantVectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, chunk := range stored {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunk.ChunkIndex)
		}
		for j, v := range wantVectors[i] {
			if chunk.Embedding[j] != v {
				t.Errorf("chunk %d: embedding not paired by position: got %v", i, chunk.Embedding)
				break
			}
		}
	}
}

func TestIndexDocument_ContiguousIndexes(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	content := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 200)
	result, err := rag.svc.IndexDocument(context.Background(), "book-1", content, domain.Metadata{
		"title":  "Biology 101",
		"author": "Test Author",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := rag.store.Chunks("book-1")
	if len(stored) != result.ChunkCount {
		t.Fatalf("result count %d does not match stored %d", result.ChunkCount, len(stored))
	}
	for i, chunk := range stored {
		if chunk.ChunkIndex != i {
			t.Errorf("expected contiguous index %d, got %d", i, chunk.ChunkIndex)
		}
		if err := chunk.Validate(); err != nil {
			t.Errorf("chunk %d fails invariants: %v", i, err)
		}
		if chunk.Metadata["title"] != "Biology 101" {
			t.Errorf("chunk %d lost caller metadata", i)
		}
		if chunk.Metadata["chunk_count"] == "" {
			t.Errorf("chunk %d missing chunk_count metadata", i)
		}
	}
}

func TestIndexDocument_ChapterFromMetadata(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	_, err := rag.svc.IndexDocument(context.Background(), "book-1", "chapter three content", domain.Metadata{
		"chapter_id": "ch-3",
		"title":      "Physics",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := rag.store.Chunks("book-1")
	if len(stored) == 0 {
		t.Fatal("expected stored chunks")
	}
	if stored[0].ChapterID != "ch-3" {
		t.Errorf("expected chapter id ch-3, got %q", stored[0].ChapterID)
	}
	if _, ok := stored[0].Metadata["chapter_id"]; ok {
		t.Error("chapter id should not be duplicated into chunk metadata")
	}
}

func TestIndexDocument_Atomicity(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{ChunkSize: 10, EmbedConcurrency: 1})

	content := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10)
	rag.embed.FailAt(2, errors.New("rate limited"))

	_, err := rag.svc.IndexDocument(context.Background(), "book-1", content, nil)
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("underlying message should be preserved, got %q", err.Error())
	}

	// The batch write must never be attempted.
	if rag.store.UpsertCalls() != 0 {
		t.Errorf("expected no store writes after embedding failure, got %d", rag.store.UpsertCalls())
	}
}

func TestIndexDocument_StoreFailure(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})
	rag.store.Fail(errors.New("connection refused"))

	_, err := rag.svc.IndexDocument(context.Background(), "book-1", "some content", nil)
	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "book-1") {
		t.Errorf("error should identify the failing batch, got %q", err.Error())
	}
}

func TestRetrieveContext_Empty(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	results, err := rag.svc.RetrieveContext(context.Background(), "anything", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("zero matches must not be an error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieveContext_FilterPassThrough(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	_, err := rag.svc.RetrieveContext(context.Background(), "q", domain.RetrieveOptions{
		BookID:    "b1",
		ChapterID: "c2",
		MaxChunks: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := rag.store.LastQuery()
	want := domain.SearchQuery{Threshold: 0.7, Limit: 3, BookID: "b1", ChapterID: "c2"}
	if got != want {
		t.Errorf("search parameters not passed through: got %+v, want %+v", got, want)
	}
}

func TestRetrieveContext_Defaults(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	if _, err := rag.svc.RetrieveContext(context.Background(), "q", domain.RetrieveOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := rag.store.LastQuery()
	if got.Limit != domain.DefaultMaxChunks {
		t.Errorf("expected default limit %d, got %d", domain.DefaultMaxChunks, got.Limit)
	}
	if got.Threshold != domain.DefaultSimilarityThreshold {
		t.Errorf("expected default threshold %v, got %v", domain.DefaultSimilarityThreshold, got.Threshold)
	}
}

func TestRetrieveContext_ProviderFailure(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})
	rag.embed.FailQueries(errors.New("embedding api down"))

	_, err := rag.svc.RetrieveContext(context.Background(), "q", domain.RetrieveOptions{})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "embedding api down") {
		t.Errorf("underlying message should be preserved, got %q", err.Error())
	}
}

func TestAnswer_NoContextFallback(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	answer, err := rag.svc.Answer(context.Background(), "what is entropy?", domain.RetrieveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != noContextAnswer {
		t.Errorf("expected the fixed fallback message, got %q", answer)
	}
	// The generation service must not be invoked for the empty case.
	if len(rag.gen.Prompts()) != 0 {
		t.Errorf("expected no generation calls, got %d", len(rag.gen.Prompts()))
	}
}

func TestAnswer_PromptAssembly(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})
	rag.store.SetResults([]domain.SearchResult{
		{ID: "c1", BookID: "b1", Content: "First relevant passage.", Similarity: 0.91},
		{ID: "c2", BookID: "b1", Content: "Second relevant passage.", Similarity: 0.83},
	})
	rag.gen.SetResponse("Entropy measures disorder.")

	answer, err := rag.svc.Answer(context.Background(), "what is entropy?", domain.RetrieveOptions{BookID: "b1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Entropy measures disorder." {
		t.Errorf("generated text must be returned unmodified, got %q", answer)
	}

	prompts := rag.gen.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(prompts))
	}
	prompt := prompts[0]

	if !strings.Contains(prompt, "[Context 1]:\nFirst relevant passage.") {
		t.Error("prompt missing first labelled context block")
	}
	if !strings.Contains(prompt, "[Context 2]:\nSecond relevant passage.") {
		t.Error("prompt missing second labelled context block")
	}
	if !strings.Contains(prompt, "Student's question: what is entropy?") {
		t.Error("prompt missing the question")
	}
	if strings.Index(prompt, "[Context 1]") > strings.Index(prompt, "[Context 2]") {
		t.Error("context blocks must keep retrieval order")
	}
}

func TestAnswerStream_NoContext(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	err := rag.svc.AnswerStream(context.Background(), "q", domain.RetrieveOptions{BookID: "empty-book"},
		func(string) error { return nil })
	if !errors.Is(err, domain.ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}
	// The failure must come before any generation stream is opened.
	if rag.gen.StreamCalls() != 0 {
		t.Errorf("expected no stream calls, got %d", rag.gen.StreamCalls())
	}
}

func TestAnswerStream_ForwardsDeltas(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})
	rag.store.SetResults([]domain.SearchResult{
		{ID: "c1", BookID: "b1", Content: "Context passage.", Similarity: 0.9},
	})
	rag.gen.SetDeltas("Entropy ", "measures ", "disorder.")

	var got strings.Builder
	err := rag.svc.AnswerStream(context.Background(), "q", domain.RetrieveOptions{}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "Entropy measures disorder." {
		t.Errorf("unexpected streamed answer: %q", got.String())
	}
}

func TestAnswerStream_CallbackErrorStopsStream(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})
	rag.store.SetResults([]domain.SearchResult{
		{ID: "c1", BookID: "b1", Content: "Context passage.", Similarity: 0.9},
	})
	rag.gen.SetDeltas("a", "b", "c")

	calls := 0
	err := rag.svc.AnswerStream(context.Background(), "q", domain.RetrieveOptions{}, func(delta string) error {
		calls++
		return errors.New("client gone")
	})
	if err == nil {
		t.Fatal("expected error when the consumer fails")
	}
	if calls != 1 {
		t.Errorf("consumption should stop at the first callback error, got %d calls", calls)
	}
}

func TestDeleteDocument(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	if _, err := rag.svc.IndexDocument(context.Background(), "book-1", "some content", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rag.svc.DeleteDocument(context.Background(), "book-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := rag.svc.ChunkCount(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 chunks after delete, got %d", count)
	}

	if err := rag.svc.DeleteDocument(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty book id, got %v", err)
	}
}

func TestRAG_EndToEnd(t *testing.T) {
	rag := newTestRAG(t, RAGConfig{})

	// 3000 characters at size 1000 / overlap 200 produce windows at
	// offsets 0, 800, 1600 and 2400.
	content := strings.Repeat("a", 750) + strings.Repeat("b", 750) +
		strings.Repeat("c", 750) + strings.Repeat("d", 750)

	chunks := chunker.Default().Chunk(content)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	// Chunks 1 and 3 embed near the query vector; 0 and 2 orthogonal.
	rag.embed.SetFixed(chunks[0], []float32{0, 1, 0})
	rag.embed.SetFixed(chunks[1], []float32{1, 0, 0})
	rag.embed.SetFixed(chunks[2], []float32{0, 0, 1})
	rag.embed.SetFixed(chunks[3], []float32{1, 0, 0})
	rag.embed.SetFixed("which chapters cover this?", []float32{1, 0, 0})

	result, err := rag.svc.IndexDocument(context.Background(), "book-1", content, domain.Metadata{"title": "Algebra"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunkCount != 4 {
		t.Fatalf("expected 4 chunks indexed, got %d", result.ChunkCount)
	}

	stored := rag.store.Chunks("book-1")
	for i, chunk := range stored {
		if chunk.ChunkIndex != i {
			t.Errorf("expected chunk index %d, got %d", i, chunk.ChunkIndex)
		}
	}

	results, err := rag.svc.RetrieveContext(context.Background(), "which chapters cover this?", domain.RetrieveOptions{BookID: "book-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected exactly 2 chunks above threshold, got %d", len(results))
	}
	if results[0].Content != chunks[1] || results[1].Content != chunks[3] {
		t.Error("expected chunks 1 and 3 in store-provided order")
	}

	rag.gen.SetResponse("grounded answer")
	answer, err := rag.svc.Answer(context.Background(), "which chapters cover this?", domain.RetrieveOptions{BookID: "book-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "grounded answer" {
		t.Errorf("unexpected answer %q", answer)
	}

	prompts := rag.gen.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], "[Context 1]:\n"+chunks[1]) {
		t.Error("prompt missing chunk 1 as [Context 1]")
	}
	if !strings.Contains(prompts[0], "[Context 2]:\n"+chunks[3]) {
		t.Error("prompt missing chunk 3 as [Context 2]")
	}
}
