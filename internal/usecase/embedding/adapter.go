// Package embedding turns texts into vectors of a fixed dimensionality.
package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Adapter is the pipeline's view of the embedding model. It batches texts,
// preserves their order and guarantees the dimensionality of every vector.
// Any failure is reported as domain.ErrEmbeddingFailure; there are no partial results.
type Adapter struct {
	inner      domain.Embedder
	dimensions int
}

// NewAdapter creates an Adapter that expects vectors of the given dimensionality.
func NewAdapter(inner domain.Embedder, dimensions int) *Adapter {
	return &Adapter{inner: inner, dimensions: dimensions}
}

// Dimensions returns the expected vector length.
func (a *Adapter) Dimensions() int { return a.dimensions }

// EmbedBatch embeds texts in one logical call. len(out) == len(texts) and
// out[i] is the vector of texts[i].
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	res, err := domain.EmbedBatch(ctx, a.inner, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingFailure, len(res.Embeddings), len(texts))
	}
	if err := domain.CheckDimensions(res.Embeddings, a.dimensions); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embeddings, nil
}

// EmbedOne embeds a single text, as a one-item batch.
func (a *Adapter) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
