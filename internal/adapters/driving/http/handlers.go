package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// IndexBookRequest is the body for POST /books/{id}/index
type IndexBookRequest struct {
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

// AskRequest is the body for /rag/ask and /rag/ask-stream
type AskRequest struct {
	Question  string `json:"question"`
	BookID    string `json:"book_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`
	MaxChunks int    `json:"max_chunks,omitempty"`
}

// AskResponse is the buffered answer payload
type AskResponse struct {
	Answer string `json:"answer"`
}

// AnalyzeBookRequest is the body for POST /books/analyze
type AnalyzeBookRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.chunkStore.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"store":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Book indexing endpoints

func (s *Server) handleIndexBook(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")

	var req IndexBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), indexTimeout)
	defer cancel()

	result, err := s.ragService.IndexDocument(ctx, bookID, req.Content, req.Metadata)
	if err != nil {
		s.writeServiceError(w, r, err, "indexing failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteBookChunks(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")

	if err := s.ragService.DeleteDocument(r.Context(), bookID); err != nil {
		s.writeServiceError(w, r, err, "delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "book_id": bookID})
}

func (s *Server) handleBookChunkCount(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")

	count, err := s.ragService.ChunkCount(r.Context(), bookID)
	if err != nil {
		s.writeServiceError(w, r, err, "count failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"book_id": bookID, "chunk_count": count})
}

// Question answering endpoints

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), askTimeout)
	defer cancel()

	opts := domain.RetrieveOptions{
		BookID:    req.BookID,
		ChapterID: req.ChapterID,
		MaxChunks: req.MaxChunks,
	}

	answer, err := s.ragService.Answer(ctx, req.Question, opts)
	if err != nil {
		s.writeServiceError(w, r, err, "answer failed")
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Answer: answer})
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	opts := domain.RetrieveOptions{
		BookID:    req.BookID,
		ChapterID: req.ChapterID,
		MaxChunks: req.MaxChunks,
	}

	// Headers are deferred until the first delta so retrieval errors
	// (no context, bad input) can still map to JSON status codes.
	started := false
	err := s.ragService.AnswerStream(r.Context(), req.Question, opts, func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			started = true
		}

		payload, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			s.writeServiceError(w, r, err, "streaming failed")
			return
		}
		// Mid-stream failure: the status line is gone; signal in-band.
		s.logger.Error("stream aborted", "error", err, "request_id", GetRequestID(r.Context()))
		fmt.Fprintf(w, "data: {\"error\":\"stream aborted\"}\n\n")
		flusher.Flush()
		return
	}

	if !started {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// Book analysis endpoint

func (s *Server) handleAnalyzeBook(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	analysis, err := s.analysisService.AnalyzeBook(r.Context(), req.Title, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// writeServiceError maps domain sentinels to HTTP status codes
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoContext):
		writeError(w, http.StatusNotFound, "no relevant context found")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		writeError(w, http.StatusBadGateway, "upstream provider failure")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, domain.ErrStoreFailure):
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		s.logger.Error(fallback, "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
