package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bookwise-labs/bookwise-core/internal/chunker"
	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driving"
	"github.com/bookwise-labs/bookwise-core/internal/runtime"
)

// metadata key for the chapter filter carried alongside a document
const metadataChapterKey = "chapter_id"

// noContextAnswer is returned by the buffered path when retrieval
// finds nothing. The streaming path signals domain.ErrNoContext instead.
const noContextAnswer = "I couldn't find relevant information in the document to answer your question."

// answerPromptFormat instructs the model to answer only from the
// supplied context, admit when it is insufficient, and point the
// student at the section to revisit.
const answerPromptFormat = `You are a helpful educational assistant. Answer the student's question based on the provided context from their textbook.

Context from the textbook:
%s

Student's question: %s

Instructions:
- Answer based primarily on the provided context
- If the context doesn't contain enough information, say so
- Be clear, concise, and educational
- Use examples from the context when helpful
- If relevant, suggest what chapter or section to review

Answer:`

// Ensure ragService implements RAGService
var _ driving.RAGService = (*ragService)(nil)

// ragService implements the indexing and question-answering pipeline
type ragService struct {
	chunker    *chunker.Chunker
	chunkStore driven.ChunkStore
	services   *runtime.Services // Dynamic AI services

	threshold        float64
	embedConcurrency int
	logger           *slog.Logger
}

// RAGConfig holds dependencies and tuning for the RAG service.
type RAGConfig struct {
	ChunkStore driven.ChunkStore
	Services   *runtime.Services
	Logger     *slog.Logger

	// ChunkSize and ChunkOverlap configure the chunker; leaving both
	// zero selects the defaults (1000/200). A custom ChunkSize with a
	// zero ChunkOverlap means no overlap.
	ChunkSize    int
	ChunkOverlap int

	// Threshold is the minimum similarity for retrieval; zero selects
	// the default (0.7).
	Threshold float64

	// EmbedConcurrency caps the number of in-flight embedding requests
	// during indexing; zero selects the default (4).
	EmbedConcurrency int
}

// NewRAGService creates a new RAGService.
// AI services (embedding, generation) are accessed dynamically via
// runtime.Services.
func NewRAGService(cfg RAGConfig) (driving.RAGService, error) {
	size := cfg.ChunkSize
	if size == 0 {
		size = chunker.DefaultSize
	}
	overlap := cfg.ChunkOverlap
	if cfg.ChunkSize == 0 && cfg.ChunkOverlap == 0 {
		overlap = chunker.DefaultOverlap
	}
	ck, err := chunker.New(size, overlap)
	if err != nil {
		return nil, err
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = domain.DefaultSimilarityThreshold
	}

	concurrency := cfg.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ragService{
		chunker:          ck,
		chunkStore:       cfg.ChunkStore,
		services:         cfg.Services,
		threshold:        threshold,
		embedConcurrency: concurrency,
		logger:           logger,
	}, nil
}

// IndexDocument chunks, embeds and persists a document's content.
func (s *ragService) IndexDocument(ctx context.Context, bookID, content string, metadata domain.Metadata) (*domain.IndexResult, error) {
	if bookID == "" {
		return nil, fmt.Errorf("%w: book id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}

	start := time.Now()
	s.logger.Info("indexing document", "book_id", bookID)

	chunks := s.chunker.Chunk(content)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document is empty after chunking", domain.ErrInvalidInput)
	}

	// Fan out embedding requests with a concurrency cap. Results are
	// paired with chunks by position, never by completion order, and
	// nothing is written until every embedding has succeeded.
	embeddings, err := s.embedAll(ctx, embeddingService, chunks)
	if err != nil {
		return nil, err
	}

	chapterID := metadata[metadataChapterKey]
	meta := metadata.Clone()
	delete(meta, metadataChapterKey)
	meta["chunk_count"] = strconv.Itoa(len(chunks))

	now := time.Now()
	records := make([]*domain.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		records[i] = &domain.DocumentChunk{
			ID:         generateID(),
			BookID:     bookID,
			ChapterID:  chapterID,
			ChunkIndex: i,
			Content:    chunk,
			Embedding:  embeddings[i],
			Metadata:   meta,
			CreatedAt:  now,
		}
	}

	if err := s.chunkStore.UpsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: storing %d chunks for book %s: %v",
			domain.ErrStoreFailure, len(records), bookID, err)
	}

	s.logger.Info("document indexed",
		"book_id", bookID,
		"chunks", len(records),
		"duration", time.Since(start),
	)

	return &domain.IndexResult{
		BookID:     bookID,
		ChunkCount: len(records),
	}, nil
}

// embedAll requests one embedding per chunk, at most embedConcurrency
// in flight. The returned slice is index-correlated with texts. The
// first failure cancels outstanding requests and fails the whole call.
func (s *ragService) embedAll(ctx context.Context, svc driven.EmbeddingService, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	embeddings := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	sem := make(chan struct{}, s.embedConcurrency)

	var wg sync.WaitGroup
	for i, text := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}

		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()

			vectors, err := svc.Embed(ctx, []string{text})
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			if len(vectors) != 1 || len(vectors[0]) == 0 {
				errs[i] = fmt.Errorf("empty embedding returned")
				cancel()
				return
			}
			embeddings[i] = vectors[0]
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: embedding chunk %d: %v", domain.ErrProviderFailure, i, err)
		}
	}
	return embeddings, nil
}

// RetrieveContext returns the ranked context chunks for a query.
func (s *ragService) RetrieveContext(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}

	queryEmbedding, err := embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrProviderFailure, err)
	}

	results, err := s.chunkStore.Search(ctx, queryEmbedding, domain.SearchQuery{
		Threshold: s.threshold,
		Limit:     opts.EffectiveMaxChunks(),
		BookID:    opts.BookID,
		ChapterID: opts.ChapterID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", domain.ErrStoreFailure, err)
	}

	// The store owns ranking and tie-breaks; its order is returned
	// unmodified.
	s.logger.Debug("retrieved context", "query_len", len(query), "results", len(results))
	return results, nil
}

// Answer produces a buffered grounded answer.
func (s *ragService) Answer(ctx context.Context, question string, opts domain.RetrieveOptions) (string, error) {
	generationService := s.services.GenerationService()
	if generationService == nil {
		return "", fmt.Errorf("%w: no generation service configured", domain.ErrServiceUnavailable)
	}

	results, err := s.RetrieveContext(ctx, question, opts)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		// Deliberate: no generation call is made for the empty case.
		return noContextAnswer, nil
	}

	answer, err := generationService.Generate(ctx, buildAnswerPrompt(question, results))
	if err != nil {
		return "", fmt.Errorf("%w: generating answer: %v", domain.ErrProviderFailure, err)
	}
	return answer, nil
}

// AnswerStream produces an incremental grounded answer.
func (s *ragService) AnswerStream(ctx context.Context, question string, opts domain.RetrieveOptions, onDelta driven.StreamFunc) error {
	generationService := s.services.GenerationService()
	if generationService == nil {
		return fmt.Errorf("%w: no generation service configured", domain.ErrServiceUnavailable)
	}

	results, err := s.RetrieveContext(ctx, question, opts)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return domain.ErrNoContext
	}

	if err := generationService.GenerateStream(ctx, buildAnswerPrompt(question, results), onDelta); err != nil {
		return fmt.Errorf("%w: streaming answer: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

// DeleteDocument removes all chunks for a book.
func (s *ragService) DeleteDocument(ctx context.Context, bookID string) error {
	if bookID == "" {
		return fmt.Errorf("%w: book id is required", domain.ErrInvalidInput)
	}
	if err := s.chunkStore.DeleteByBook(ctx, bookID); err != nil {
		return fmt.Errorf("%w: deleting chunks for book %s: %v", domain.ErrStoreFailure, bookID, err)
	}
	s.logger.Info("deleted book chunks", "book_id", bookID)
	return nil
}

// ChunkCount returns the number of stored chunks for a book.
func (s *ragService) ChunkCount(ctx context.Context, bookID string) (int, error) {
	if bookID == "" {
		return 0, fmt.Errorf("%w: book id is required", domain.ErrInvalidInput)
	}
	count, err := s.chunkStore.CountByBook(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks for book %s: %v", domain.ErrStoreFailure, bookID, err)
	}
	return count, nil
}

// buildAnswerPrompt assembles the labelled context block and renders
// the grounded-answer prompt. Context entries keep retrieval order.
func buildAnswerPrompt(question string, results []domain.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Context %d]:\n%s", i+1, r.Content)
	}
	return fmt.Sprintf(answerPromptFormat, strings.Join(blocks, "\n\n"), question)
}
