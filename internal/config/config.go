package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration. Values come from an
// optional YAML file with environment variables taking precedence.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	AI     AIConfig     `yaml:"ai"`
	RAG    RAGConfig    `yaml:"rag"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSecs int `yaml:"read_timeout_secs"`
	IdleTimeoutSecs int `yaml:"idle_timeout_secs"`
}

// StoreConfig selects and configures the chunk store backend.
type StoreConfig struct {
	// Backend is "postgres" or "sqlite".
	Backend string `yaml:"backend"`

	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	MaxOpenConns    int `yaml:"max_open_conns"`
	MaxIdleConns    int `yaml:"max_idle_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime_secs"`
}

// CacheConfig configures the optional Redis embedding cache. An empty
// URL disables caching.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTLHours int    `yaml:"ttl_hours"`
}

// AIConfig configures the embedding and generation providers.
type AIConfig struct {
	Provider        string `yaml:"provider"`
	APIKey          string `yaml:"-"`
	BaseURL         string `yaml:"base_url"`
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// RAGConfig tunes the indexing and retrieval pipeline.
type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	EmbedConcurrency    int     `yaml:"embed_concurrency"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path when it exists, then applies
// environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)

	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)

	c.AI.Provider = getEnv("AI_PROVIDER", c.AI.Provider)
	c.AI.APIKey = getEnv("AI_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = getEnv("AI_BASE_URL", c.AI.BaseURL)
	c.AI.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.AI.EmbeddingModel)
	c.AI.GenerationModel = getEnv("GENERATION_MODEL", c.AI.GenerationModel)

	c.RAG.ChunkSize = getEnvInt("RAG_CHUNK_SIZE", c.RAG.ChunkSize)
	c.RAG.ChunkOverlap = getEnvInt("RAG_CHUNK_OVERLAP", c.RAG.ChunkOverlap)
	c.RAG.EmbedConcurrency = getEnvInt("RAG_EMBED_CONCURRENCY", c.RAG.EmbedConcurrency)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 30
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 120
	}

	if c.Store.Backend == "" {
		if c.Store.DatabaseURL != "" {
			c.Store.Backend = "postgres"
		} else {
			c.Store.Backend = "sqlite"
		}
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "bookwise.db"
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = 25
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = 5
	}
	if c.Store.ConnMaxLifetime == 0 {
		c.Store.ConnMaxLifetime = 300
	}

	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = 24
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.AI.GenerationModel == "" {
		c.AI.GenerationModel = "gpt-4o-mini"
	}
	if c.AI.TimeoutSecs == 0 {
		c.AI.TimeoutSecs = 60
	}

	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkSize == 1000 && c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.SimilarityThreshold == 0 {
		c.RAG.SimilarityThreshold = 0.7
	}
	if c.RAG.EmbedConcurrency == 0 {
		c.RAG.EmbedConcurrency = 4
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store backend is postgres but DATABASE_URL is not set")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	return nil
}

// TTL returns the embedding cache TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
