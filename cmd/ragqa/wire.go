package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/config"
	dbValkey "github.com/kailas-cloud/ragqa/internal/db/valkey"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/domain/chunking"
	"github.com/kailas-cloud/ragqa/internal/metrics"
	collectionrepo "github.com/kailas-cloud/ragqa/internal/repository/collection"
	"github.com/kailas-cloud/ragqa/internal/repository/embcache"
	entryrepo "github.com/kailas-cloud/ragqa/internal/repository/entry"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
	anthropicGen "github.com/kailas-cloud/ragqa/internal/transport/anthropic"
	openaiTransport "github.com/kailas-cloud/ragqa/internal/transport/openai"
	"github.com/kailas-cloud/ragqa/internal/transport/qdrant"
	"github.com/kailas-cloud/ragqa/internal/transport/web"
	answeruc "github.com/kailas-cloud/ragqa/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/ragqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragqa/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/ragqa/internal/usecase/retrieve"
)

// app is the assembled pipeline shared by every subcommand.
type app struct {
	ingest *ingestuc.Service
	answer *answeruc.Service
	health *healthuc.Service
	close  func()
}

// vectorBackend is what the pipeline needs from a vector store driver.
type vectorBackend struct {
	colls   ingestuc.CollectionManager
	entries ingestuc.EntryWriter
	search  retrieveuc.Searcher
	pinger  healthuc.DBPinger
	kv      *dbValkey.Store // nil for qdrant; backs the embedding cache
	close   func()
}

// buildApp is the composition root: it connects the store, assembles both
// embedder chains and the generator, and wires the use cases.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metric, err := domain.ParseMetric(cfg.Collection.Metric)
	if err != nil {
		return nil, err
	}
	spec := domain.CollectionSpec{
		Name:       cfg.Collection.Name,
		Dimensions: cfg.Collection.Dimensions,
		Metric:     metric,
	}
	params := chunking.Params{WindowSize: cfg.Ingest.WindowSize, Overlap: cfg.Ingest.Overlap}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, cfg, metric, logger)
	if err != nil {
		return nil, err
	}

	// Register metrics explicitly (no init())
	metrics.Register()

	docEmbedder := embeddinguc.NewAdapter(
		buildEmbedder(cfg, cfg.Embedding.DocumentInstruction, backend.kv, logger),
		spec.Dimensions,
	)
	queryEmbedder := embeddinguc.NewAdapter(
		buildEmbedder(cfg, cfg.Embedding.QueryInstruction, backend.kv, logger),
		spec.Dimensions,
	)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", spec.Dimensions),
		zap.Bool("cache", backend.kv != nil && cfg.Embedding.Cache),
	)

	generator, genChecker := buildGenerator(cfg, logger)

	fetcher := web.NewFetcher(web.Config{
		Timeout:   time.Duration(cfg.Ingest.FetchTimeoutSec) * time.Second,
		UserAgent: cfg.Ingest.UserAgent,
		Logger:    logger,
	})

	ingestSvc := ingestuc.New(backend.colls, backend.entries, docEmbedder, fetcher, ingestuc.Config{
		Collection: spec,
		Chunking:   params,
		SourceURL:  cfg.Ingest.SourceURL,
	}, logger)
	retrieveSvc := retrieveuc.New(backend.search, queryEmbedder, spec.Name, cfg.Retrieval.TopK)
	answerSvc, err := answeruc.New(retrieveSvc, generator, answeruc.Config{
		PromptTemplate:  cfg.Generation.PromptTemplate,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	}, logger)
	if err != nil {
		backend.close()
		return nil, err
	}

	return &app{
		ingest: ingestSvc,
		answer: answerSvc,
		health: healthuc.New(backend.pinger, docEmbedder, genChecker).
			WithCollection(ingestSvc).
			WithTimeout(time.Duration(cfg.Health.ProbeTimeoutSec) * time.Second),
		close:  backend.close,
	}, nil
}

// openBackend connects the configured vector store and waits until it is ready.
func openBackend(ctx context.Context, cfg config.Config, metric domain.Metric, logger *zap.Logger) (*vectorBackend, error) {
	readiness := time.Duration(cfg.VectorStore.ReadinessTimeout) * time.Second

	switch cfg.VectorStore.Driver {
	case "valkey", "redis":
		// rueidis speaks both; the FT.* commands are served by valkey-search or RediSearch
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:      cfg.VectorStore.Addrs,
			Password:   cfg.VectorStore.Password,
			ClientName: "ragqa",
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.VectorStore.Driver, err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.VectorStore.Driver, err)
		}
		logger.Info("Connected to vector store",
			zap.String("driver", cfg.VectorStore.Driver),
			zap.Strings("addrs", cfg.VectorStore.Addrs),
		)

		keys := keyspace.New(cfg.VectorStore.KeyPrefix)
		entries := entryrepo.New(store, keys, metric)
		return &vectorBackend{
			colls: collectionrepo.New(store, keys).WithHNSW(collectionrepo.HNSWConfig{
				M:           cfg.Collection.HNSWM,
				EFConstruct: cfg.Collection.HNSWEFConstruct,
			}),
			entries: entries,
			search:  entries,
			pinger:  store,
			kv:      store,
			close:   store.Close,
		}, nil

	case "qdrant":
		store, err := qdrant.NewStore(qdrant.Config{
			URL:    cfg.VectorStore.URL,
			APIKey: cfg.VectorStore.APIKey,
			Metric: metric,
		})
		if err != nil {
			return nil, fmt.Errorf("create qdrant store: %w", err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return nil, fmt.Errorf("qdrant not ready: %w", err)
		}
		logger.Info("Connected to vector store",
			zap.String("driver", "qdrant"),
			zap.String("url", cfg.VectorStore.URL),
		)
		return &vectorBackend{
			colls:   store,
			entries: store,
			search:  store,
			pinger:  store,
			close:   store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector store driver %q",
			domain.ErrInvalidConfiguration, cfg.VectorStore.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	instruction string,
	kv *dbValkey.Store,
	logger *zap.Logger,
) domain.Embedder {
	const provider = "openai"

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		Provider: provider,
		Logger:   logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.Cache && kv != nil {
		embedder = embcache.New(base, kv, keyspace.New(cfg.VectorStore.KeyPrefix),
			cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, provider, cfg.Embedding.Model, cfg.Embedding.MaxBatchSize, logger,
	).WithConcurrency(cfg.Embedding.MaxConcurrency)

	// outermost, so the cache key includes the instruction
	return embeddinguc.WithInstruction(embedder, instruction)
}

// buildGenerator returns the configured generator and its health checker.
func buildGenerator(cfg config.Config, logger *zap.Logger) (domain.Generator, healthuc.Checker) {
	g := cfg.Generation
	if g.Provider == "anthropic" {
		gen := anthropicGen.NewGenerator(&anthropicGen.Config{
			APIKey:      g.APIKey,
			BaseURL:     g.BaseURL,
			Model:       g.Model,
			Temperature: g.Temperature,
			Logger:      logger,
		})
		return gen, gen
	}

	gen := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      g.APIKey,
		BaseURL:     g.BaseURL,
		Model:       g.Model,
		Temperature: g.Temperature,
		Provider:    "openai",
		Logger:      logger,
	})
	return gen, gen
}
