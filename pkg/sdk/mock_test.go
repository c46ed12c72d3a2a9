package ragqa

import (
	"context"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	resetFn  func(ctx context.Context) error
	ingestFn func(ctx context.Context, doc domain.Document) (domain.IngestResult, error)
}

func (m *mockIngestUC) Reset(ctx context.Context) error {
	return m.resetFn(ctx)
}

func (m *mockIngestUC) Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error) {
	return m.ingestFn(ctx, doc)
}

// --- retrieveUseCase mock ---

type mockRetrieveUC struct {
	retrieveFn func(ctx context.Context, question string, topK int) ([]domain.SearchHit, error)
}

func (m *mockRetrieveUC) Retrieve(ctx context.Context, question string, topK int) ([]domain.SearchHit, error) {
	return m.retrieveFn(ctx, question, topK)
}

// --- answerUseCase mock ---

type mockAnswerUC struct {
	askFn func(ctx context.Context, question string, topK int) (domain.AnswerResult, error)
}

func (m *mockAnswerUC) AskTopK(ctx context.Context, question string, topK int) (domain.AnswerResult, error) {
	return m.askFn(ctx, question, topK)
}

// --- public model mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockGenerator struct {
	fn        func(ctx context.Context, prompt string, maxTokens int) (string, error)
	healthErr error
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return m.fn(ctx, prompt, maxTokens)
}

func (m *mockGenerator) HealthCheck(context.Context) error { return m.healthErr }

// --- helpers ---

func testClient(ingest ingestUseCase, retrieve retrieveUseCase, answer answerUseCase) *Client {
	return &Client{
		ingestSvc: ingest,
		retrieve:  retrieve,
		answerSvc: answer,
	}
}
