package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite fallback backend, got %q", cfg.Store.Backend)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 200 {
		t.Errorf("expected chunking defaults 1000/200, got %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.SimilarityThreshold != 0.7 {
		t.Errorf("expected default threshold 0.7, got %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.AI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("unexpected default embedding model %q", cfg.AI.EmbeddingModel)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
store:
  backend: postgres
  database_url: postgres://localhost:5432/bookwise
rag:
  chunk_size: 500
  chunk_overlap: 100
ai:
  generation_model: gpt-4o
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("expected postgres backend, got %q", cfg.Store.Backend)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("expected 500/100 chunking, got %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.AI.GenerationModel != "gpt-4o" {
		t.Errorf("unexpected generation model %q", cfg.AI.GenerationModel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("STORE_BACKEND", "sqlite")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env PORT should win, got %d", cfg.Server.Port)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.AI.APIKey)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"postgres without url", "store:\n  backend: postgres\n"},
		{"unknown backend", "store:\n  backend: vespa\n"},
		{"overlap too large", "rag:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_PostgresInferredFromDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/bookwise")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("expected backend inferred as postgres, got %q", cfg.Store.Backend)
	}
}
