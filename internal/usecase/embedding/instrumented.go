package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder splits large batches into provider-sized requests,
// sends up to concurrency of them at once and logs every call. Request,
// latency and token metrics live in the provider transport.
type InstrumentedEmbedder struct {
	inner        domain.Embedder
	maxBatchSize int
	concurrency  int
	logger       *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. maxBatchSize <= 0 means
// DefaultMaxAPIBatchSize. Sub-batches are sent one at a time until
// WithConcurrency says otherwise.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	maxBatchSize int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxAPIBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:        inner,
		maxBatchSize: maxBatchSize,
		concurrency:  1,
		logger:       logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithConcurrency bounds how many sub-batches are in flight; n < 1 is ignored.
func (e *InstrumentedEmbedder) WithConcurrency(n int) *InstrumentedEmbedder {
	if n >= 1 {
		e.concurrency = n
	}
	return e
}

// Embed delegates a single text.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		e.logger.Error("Embedding request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	e.logger.Debug("Embedding request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed embeds texts in sub-batches of at most maxBatchSize. The output
// keeps input order whatever order the sub-batches finish in; the first
// failing sub-batch cancels the rest.
func (e *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	start := time.Now()

	parts := make([]domain.BatchEmbeddingResult, (len(texts)+e.maxBatchSize-1)/e.maxBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for p := range parts {
		lo := p * e.maxBatchSize
		hi := min(lo+e.maxBatchSize, len(texts))
		g.Go(func() error {
			res, err := domain.EmbedBatch(gctx, e.inner, texts[lo:hi])
			if err != nil {
				e.logger.Error("Sub-batch embedding failed",
					zap.Int("offset", lo), zap.Int("size", hi-lo), zap.Error(err))
				return fmt.Errorf("sub-batch at %d: %w", lo, err)
			}
			if len(res.Embeddings) != hi-lo {
				return fmt.Errorf("sub-batch at %d: provider returned %d vectors for %d texts",
					lo, len(res.Embeddings), hi-lo)
			}
			parts[p] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for _, part := range parts {
		out.Embeddings = append(out.Embeddings, part.Embeddings...)
		out.PromptTokens += part.PromptTokens
		out.TotalTokens += part.TotalTokens
	}

	e.logger.Debug("Batch embedding completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("texts", len(texts)),
		zap.Int("requests", len(parts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck delegates to inner when it can report health.
func (e *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
