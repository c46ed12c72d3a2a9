// Package embcache memoizes embeddings in a key-value store keyed by the
// SHA-256 of model and text, so re-ingesting an unchanged page costs no tokens.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder serves repeated texts from the store. Store failures are
// logged and treated as misses; they never fail an embedding call.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	keys   keyspace.Keyspace
	model  string
	total  *prometheus.CounterVec
	logger *zap.Logger
}

// New wraps inner. model partitions the cache so switching models never
// serves stale vectors. total counts lookups by "hit"/"miss" and may be nil.
func New(
	inner domain.Embedder, s store, keys keyspace.Keyspace, model string,
	total *prometheus.CounterVec, logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, store: s, keys: keys, model: model, total: total, logger: logger}
}

// Embed answers from the cache when it can. A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec := c.lookup(ctx, key); vec != nil {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.remember(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed sends only the uncached texts to inner, in one batch, and
// returns vectors in the order of texts.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	keys := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		keys[i] = c.key(text)
		if out.Embeddings[i] = c.lookup(ctx, keys[i]); out.Embeddings[i] == nil {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	misses := make([]string, len(pending))
	for j, i := range pending {
		misses[j] = texts[i]
	}
	fresh, err := domain.EmbedBatch(ctx, c.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	if len(fresh.Embeddings) != len(misses) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"inner embedder returned %d vectors for %d texts", len(fresh.Embeddings), len(misses))
	}

	for j, i := range pending {
		out.Embeddings[i] = fresh.Embeddings[j]
		c.remember(ctx, keys[i], fresh.Embeddings[j])
	}
	out.PromptTokens, out.TotalTokens = fresh.PromptTokens, fresh.TotalTokens
	return out, nil
}

// HealthCheck delegates to the inner embedder.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return c.keys.EmbeddingCache(hex.EncodeToString(sum[:]))
}

// lookup returns nil on any miss, including unreadable entries.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) []float32 {
	vec, err := c.read(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	if vec == nil {
		c.count("miss")
		return nil
	}
	c.count("hit")
	return vec
}

func (c *CachedEmbedder) read(ctx context.Context, key string) ([]float32, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // logged by lookup
	}
	if len(data) == 0 {
		return nil, nil
	}
	vec, err := db.DecodeVector(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return vec, nil
}

func (c *CachedEmbedder) remember(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, db.EncodeVector(vec)); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.total != nil {
		c.total.WithLabelValues(result).Inc()
	}
}
