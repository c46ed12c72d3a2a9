package ragqa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbValkey "github.com/kailas-cloud/ragqa/internal/db/valkey"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/domain/chunking"
	collectionrepo "github.com/kailas-cloud/ragqa/internal/repository/collection"
	entryrepo "github.com/kailas-cloud/ragqa/internal/repository/entry"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
	"github.com/kailas-cloud/ragqa/internal/transport/qdrant"
	answeruc "github.com/kailas-cloud/ragqa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/ragqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragqa/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragqa/internal/usecase/retrieve"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type ingestUseCase interface {
	Reset(ctx context.Context) error
	Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error)
}

type retrieveUseCase interface {
	Retrieve(ctx context.Context, question string, topK int) ([]domain.SearchHit, error)
}

type answerUseCase interface {
	AskTopK(ctx context.Context, question string, topK int) (domain.AnswerResult, error)
}

// store is what the client needs from a vector store driver.
type store interface {
	healthuc.DBPinger
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Client is the ragqa SDK entry point.
type Client struct {
	store     store
	ingestSvc ingestUseCase
	retrieve  retrieveUseCase
	answerSvc answerUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the vector store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, fmt.Errorf("%w: embedder required (use WithEmbedder)", ErrInvalidConfiguration)
	}
	spec, params, err := cfg.pipelineParams()
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(spec.Name, cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	s, colls, entries, search, err := createStore(cfg, spec.Metric)
	if err != nil {
		return nil, err
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("ragqa: vector store not ready: %w", err)
	}

	c, err := wireClient(s, colls, entries, search, cfg, spec, params, obs)
	if err != nil {
		s.Close()
		return nil, err
	}
	return c, nil
}

// pipelineParams validates the collection and chunking options.
func (c *clientConfig) pipelineParams() (domain.CollectionSpec, chunking.Params, error) {
	metric, err := domain.ParseMetric(c.metric)
	if err != nil {
		return domain.CollectionSpec{}, chunking.Params{}, err
	}
	spec := domain.CollectionSpec{Name: c.collection, Dimensions: c.dimensions, Metric: metric}
	if err := spec.Validate(); err != nil {
		return domain.CollectionSpec{}, chunking.Params{}, err
	}
	params := chunking.Params{WindowSize: c.windowSize, Overlap: c.overlap}
	if err := params.Validate(); err != nil {
		return domain.CollectionSpec{}, chunking.Params{}, err
	}
	return spec, params, nil
}

func createStore(cfg *clientConfig, metric domain.Metric) (
	store, ingestuc.CollectionManager, ingestuc.EntryWriter, retrieveuc.Searcher, error,
) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, nil, nil, errors.New("ragqa: database address required")
		}
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "ragqa-sdk",
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("ragqa: create %s store: %w", cfg.driver, err)
		}
		keys := keyspace.New(cfg.keyPrefix)
		entries := entryrepo.New(s, keys, metric)
		return s, collectionrepo.New(s, keys), entries, entries, nil
	case "qdrant":
		s, err := qdrant.NewStore(qdrant.Config{
			URL:    cfg.qdrantURL,
			APIKey: cfg.qdrantAPIKey,
			Metric: metric,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("ragqa: create qdrant store: %w", err)
		}
		return s, s, s, s, nil
	case "":
		return nil, nil, nil, nil, errors.New("ragqa: vector store required (use WithValkey, WithRedis or WithQdrant)")
	default:
		return nil, nil, nil, nil, fmt.Errorf("ragqa: unknown driver %q", cfg.driver)
	}
}

func wireClient(
	s store,
	colls ingestuc.CollectionManager, entries ingestuc.EntryWriter, search retrieveuc.Searcher,
	cfg *clientConfig, spec domain.CollectionSpec, params chunking.Params, obs *observer,
) (*Client, error) {
	// use cases log through zap; SDK callers observe through slog
	nop := zap.NewNop()

	embedder := embeddinguc.NewAdapter(
		embeddinguc.NewInstrumentedEmbedder(
			&embedderAdapter{inner: cfg.embedder}, "sdk", "custom", cfg.maxBatchSize, nop,
		),
		spec.Dimensions,
	)

	var generator domain.Generator = noopGenerator{}
	if cfg.generator != nil {
		generator = &generatorAdapter{inner: cfg.generator}
	}

	ingestSvc := ingestuc.New(colls, entries, embedder, nil, ingestuc.Config{
		Collection: spec,
		Chunking:   params,
	}, nop)
	retrieveSvc := retrieveuc.New(search, embedder, spec.Name, cfg.topK)
	answerSvc, err := answeruc.New(retrieveSvc, generator, answeruc.Config{
		PromptTemplate:  cfg.promptTemplate,
		MaxOutputTokens: cfg.maxOutputTokens,
	}, nop)
	if err != nil {
		return nil, err
	}

	// Pass nil interface (not typed nil pointer!) when the generator cannot report health.
	var genChecker healthuc.Checker
	if hc, ok := cfg.generator.(HealthChecker); ok {
		genChecker = hc
	}

	return &Client{
		store:     s,
		ingestSvc: ingestSvc,
		retrieve:  retrieveSvc,
		answerSvc: answerSvc,
		healthSvc: healthuc.New(s, embedder, genChecker).WithCollection(ingestSvc),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Reset destructively recreates the collection, dropping every chunk.
func (c *Client) Reset(ctx context.Context) (err error) {
	done := c.obs.track("reset")
	defer func() { done(err) }()

	if err = c.ingestSvc.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// Ingest chunks text, embeds the chunks and upserts them with ids equal to
// the chunk index. source is stored with every chunk.
func (c *Client) Ingest(ctx context.Context, source, text string) (_ IngestResult, err error) {
	done := c.obs.track("ingest")
	defer func() { done(err) }()

	res, err := c.ingestSvc.Ingest(ctx, domain.Document{Source: source, Text: text})
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	c.obs.ingested(res.ChunkCount)
	return IngestResult{Source: res.Source, ChunkCount: res.ChunkCount}, nil
}

// Retrieve returns up to topK chunks closest to question, most similar first.
// topK <= 0 uses the configured default. An empty or missing collection yields no hits.
func (c *Client) Retrieve(ctx context.Context, question string, topK int) (_ []Hit, err error) {
	done := c.obs.track("retrieve")
	defer func() { done(err) }()

	hits, err := c.retrieve.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return toHits(hits), nil
}

// Ask retrieves context for question and generates an answer from it.
func (c *Client) Ask(ctx context.Context, question string) (_ Answer, err error) {
	done := c.obs.track("ask")
	defer func() { done(err) }()

	res, err := c.answerSvc.AskTopK(ctx, question, 0)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return Answer{
		Question:    res.Question,
		Answer:      res.Answer,
		ContextUsed: res.ContextUsed,
		Hits:        toHits(res.Hits),
	}, nil
}

func toHits(hits []domain.SearchHit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Text: h.Payload.Text, Source: h.Payload.Source, Score: h.Score}
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder
// and domain.BatchEmbedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// generatorAdapter wraps public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string, maxTokens int) (domain.GenerationResult, error) {
	text, err := a.inner.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	return domain.GenerationResult{Text: text}, nil
}

// noopGenerator returns an error on Generate (used when no generator configured).
type noopGenerator struct{}

func (noopGenerator) Generate(context.Context, string, int) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf(
		"%w: generator not configured (use WithGenerator)", domain.ErrGenerationFailed,
	)
}
