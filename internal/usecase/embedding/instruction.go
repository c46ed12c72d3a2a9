package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// instructionEmbedder prefixes every text with a fixed instruction.
type instructionEmbedder struct {
	inner       domain.Embedder
	instruction string
}

// WithInstruction prefixes texts with instruction before they reach inner.
// Instruction-tuned models (e5, bge) embed passages and queries with
// different prefixes, so documents and questions get separate chains.
// An empty instruction returns inner unchanged.
func WithInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return &instructionEmbedder{inner: inner, instruction: instruction}
}

func (e *instructionEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}

func (e *instructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}
	res, err := domain.EmbedBatch(ctx, e.inner, prefixed)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
	}
	return res, nil
}

func (e *instructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
