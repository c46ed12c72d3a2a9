package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey  string
	BaseURL string // any OpenAI-compatible server: TEI, vLLM, Infinity
	Model   string
	// Dimensions is sent only when > 0, for models that support truncation.
	Dimensions int
	User       string
	Provider   string // metrics label
	Logger     *zap.Logger
}

// Embedder calls the /embeddings endpoint of an OpenAI-compatible server.
type Embedder struct {
	client   *openai.Client
	req      openai.EmbeddingRequest
	provider string
	logger   *zap.Logger
}

var (
	errCountMismatch = errors.New("vector count does not match input count")
	errBadIndex      = errors.New("vector index out of range or repeated")
)

// NewEmbedder builds an Embedder from cfg.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		client: openai.NewClientWithConfig(cc),
		req: openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(cfg.Model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
			Dimensions:     max(cfg.Dimensions, 0),
			User:           cfg.User,
		},
		provider: cfg.Provider,
		logger:   log.With(zap.String("model", cfg.Model)),
	}
}

// Embed embeds a single text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	batch, err := e.request(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    batch.Embeddings[0],
		PromptTokens: batch.PromptTokens,
		TotalTokens:  batch.TotalTokens,
	}, nil
}

// BatchEmbed sends texts in one request. Callers keep batches within the
// server's limit.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.request(ctx, texts)
}

func (e *Embedder) request(ctx context.Context, input []string) (domain.BatchEmbeddingResult, error) {
	req := e.req
	req.Input = input
	model := string(req.Model)

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		e.failed(model, "api_error")
		return domain.BatchEmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}

	vectors, reason, err := orderVectors(resp.Data, len(input))
	if err != nil {
		e.failed(model, reason)
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding response for %d inputs: %w: %w",
			len(input), err, domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if u := resp.Usage; u.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(u.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(u.TotalTokens))
	}

	e.logger.Debug("Embeddings created",
		zap.Int("inputs", len(input)),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", elapsed),
	)
	return domain.BatchEmbeddingResult{
		Embeddings:   vectors,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// orderVectors places each vector at its reported index. Servers may
// answer out of order; a short, repeated or out-of-range answer is an error
// with its metrics reason.
func orderVectors(data []openai.Embedding, n int) ([][]float32, string, error) {
	if len(data) != n {
		return nil, "count_mismatch", fmt.Errorf("%w: got %d", errCountMismatch, len(data))
	}
	out := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n || out[d.Index] != nil {
			return nil, "bad_index", fmt.Errorf("%w: %d", errBadIndex, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, "", nil
}

func (e *Embedder) failed(model, reason string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, reason).Inc()
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
