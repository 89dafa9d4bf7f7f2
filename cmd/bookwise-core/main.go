package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/bookwise-labs/bookwise-core/internal/adapters/driven/ai"
	"github.com/bookwise-labs/bookwise-core/internal/adapters/driven/postgres"
	redisadapter "github.com/bookwise-labs/bookwise-core/internal/adapters/driven/redis"
	"github.com/bookwise-labs/bookwise-core/internal/adapters/driven/sqlite"
	httpserver "github.com/bookwise-labs/bookwise-core/internal/adapters/driving/http"
	"github.com/bookwise-labs/bookwise-core/internal/config"
	"github.com/bookwise-labs/bookwise-core/internal/core/domain"
	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
	"github.com/bookwise-labs/bookwise-core/internal/core/services"
	"github.com/bookwise-labs/bookwise-core/internal/runtime"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("bookwise-core starting",
		"version", version,
		"store", cfg.Store.Backend,
		"provider", cfg.AI.Provider,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ===== Chunk store =====
	var chunkStore driven.ChunkStore
	switch cfg.Store.Backend {
	case "postgres":
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Store.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Minute,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
		chunkStore = postgres.NewChunkStore(db)
		logger.Info("postgres connected")

	case "sqlite":
		store, err := sqlite.NewChunkStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		defer store.Close()
		chunkStore = store
		logger.Info("sqlite store opened", "path", cfg.Store.SQLitePath)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	// ===== AI services =====
	factory := ai.NewFactory()

	embeddingService, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProvider(cfg.AI.Provider),
		Model:    cfg.AI.EmbeddingModel,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	generationService, err := factory.CreateGenerationService(&domain.GenerationSettings{
		Provider: domain.AIProvider(cfg.AI.Provider),
		Model:    cfg.AI.GenerationModel,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating generation service: %w", err)
	}

	// ===== Redis embedding cache (optional) =====
	if cfg.Cache.RedisURL != "" && embeddingService != nil {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()

		embeddingService = redisadapter.NewEmbeddingCache(
			embeddingService, redisClient, cfg.Cache.TTL(), logger)
		logger.Info("embedding cache enabled", "ttl", cfg.Cache.TTL())
	}

	// ===== Runtime service registry =====
	reg := runtime.NewServices(domain.NewRuntimeConfig(cfg.Store.Backend))
	reg.SetEmbeddingService(embeddingService)
	reg.SetGenerationService(generationService)
	defer reg.Close()

	if embeddingService == nil {
		logger.Warn("no embedding service configured, indexing and retrieval are unavailable")
	}
	if generationService == nil {
		logger.Warn("no generation service configured, answering is unavailable")
	}

	// ===== Core services =====
	ragService, err := services.NewRAGService(services.RAGConfig{
		ChunkStore:       chunkStore,
		Services:         reg,
		Logger:           logger,
		ChunkSize:        cfg.RAG.ChunkSize,
		ChunkOverlap:     cfg.RAG.ChunkOverlap,
		Threshold:        cfg.RAG.SimilarityThreshold,
		EmbedConcurrency: cfg.RAG.EmbedConcurrency,
	})
	if err != nil {
		return fmt.Errorf("creating RAG service: %w", err)
	}
	analysisService := services.NewAnalysisService(reg, logger)

	// ===== HTTP server =====
	server := httpserver.NewServer(httpserver.Config{
		Host:    "0.0.0.0",
		Port:    cfg.Server.Port,
		Version: version,
		Logger:  logger,
	}, ragService, analysisService, chunkStore)

	return server.Start()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
