package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookwise-labs/bookwise-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*EmbeddingCache)(nil)

// Key prefix for cached embeddings
const embeddingPrefix = "embedding:"

// EmbeddingCache decorates an EmbeddingService with a Redis cache.
// Keys are derived from the model name and a SHA-256 of the text, so
// switching models never serves stale vectors. Cache failures degrade
// to the wrapped service rather than failing the request.
type EmbeddingCache struct {
	inner  driven.EmbeddingService
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewEmbeddingCache wraps inner with a Redis-backed cache
func NewEmbeddingCache(inner driven.EmbeddingService, client *redis.Client, ttl time.Duration, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Embed returns embeddings for texts, serving cached vectors where
// available and embedding only the misses. The result is
// index-correlated with the input.
func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if cached := c.get(ctx, text); cached != nil {
			embeddings[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		fresh, err := c.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, idx := range missIdx {
			embeddings[idx] = fresh[j]
			c.put(ctx, texts[idx], fresh[j])
		}
	}

	return embeddings, nil
}

// EmbedQuery returns the embedding for a query, cached like any text
func (c *EmbeddingCache) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if cached := c.get(ctx, query); cached != nil {
		return cached, nil
	}

	embedding, err := c.inner.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	c.put(ctx, query, embedding)
	return embedding, nil
}

// Dimensions returns the wrapped service's embedding dimension size
func (c *EmbeddingCache) Dimensions() int {
	return c.inner.Dimensions()
}

// Model returns the wrapped service's model name
func (c *EmbeddingCache) Model() string {
	return c.inner.Model()
}

// HealthCheck verifies the wrapped service; the cache is best-effort
// and never fails the check.
func (c *EmbeddingCache) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

// Close closes the wrapped service. The Redis client is shared and
// closed by its owner.
func (c *EmbeddingCache) Close() error {
	return c.inner.Close()
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingPrefix + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) get(ctx context.Context, text string) []float32 {
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
		return nil
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}

	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return embedding
}

func (c *EmbeddingCache) put(ctx context.Context, text string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	data := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	if err := c.client.Set(ctx, c.key(text), data, c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
}
