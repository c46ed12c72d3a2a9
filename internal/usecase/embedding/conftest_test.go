package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// mockEmbedder supports native batching and is safe for concurrent batches.
// Each batch vector is len(text) followed by result.Embedding unless batchResult is set.
type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	healthErr   error
	delay       time.Duration
	failOnBatch int // 1-based batch call that returns batchErr; 0 means every call

	mu          sync.Mutex
	batchCalls  int
	batchSizes  []int
	inFlight    int
	maxInFlight int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batchCalls++
	call := m.batchCalls
	m.batchSizes = append(m.batchSizes, len(texts))
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.BatchEmbeddingResult{}, ctx.Err()
		}
	}
	if m.batchErr != nil && (m.failOnBatch == 0 || m.failOnBatch == call) {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		// first component encodes the text length so order survives splitting
		out[i] = append([]float32{float32(len(t))}, m.result.Embedding...)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthErr
}

// plainMockEmbedder implements only Embedder, not BatchEmbedder.
type plainMockEmbedder struct {
	result domain.EmbeddingResult
	err    error

	mu    sync.Mutex
	calls int
}

func (m *plainMockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec := append([]float32{float32(len(text))}, m.result.Embedding...)
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: m.result.PromptTokens,
		TotalTokens:  m.result.TotalTokens,
	}, nil
}
