package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driving"
)

// Route-level time budgets
const (
	indexTimeout = 60 * time.Second
	askTimeout   = 30 * time.Second
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	ragService      driving.RAGService
	analysisService driving.AnalysisService

	// Infrastructure
	chunkStore driven.ChunkStore
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ragService driving.RAGService,
	analysisService driving.AnalysisService,
	chunkStore driven.ChunkStore,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		ragService:      ragService,
		analysisService: analysisService,
		chunkStore:      chunkStore,
	}

	s.setupRoutes()

	handler := NewRequestIDMiddleware().Handler(
		NewLoggingMiddleware(logger).Handler(
			NewRecoveryMiddleware(logger).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: ask-stream responses are open-ended and
		// bounded by their request contexts instead.
		IdleTimeout: 120 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Book indexing endpoints
	s.router.HandleFunc("POST /api/v1/books/{id}/index", s.handleIndexBook)
	s.router.HandleFunc("DELETE /api/v1/books/{id}/chunks", s.handleDeleteBookChunks)
	s.router.HandleFunc("GET /api/v1/books/{id}/chunks/count", s.handleBookChunkCount)

	// Question answering endpoints
	s.router.HandleFunc("POST /api/v1/rag/ask", s.handleAsk)
	s.router.HandleFunc("POST /api/v1/rag/ask-stream", s.handleAskStream)

	// Book analysis endpoint
	s.router.HandleFunc("POST /api/v1/books/analyze", s.handleAnalyzeBook)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
