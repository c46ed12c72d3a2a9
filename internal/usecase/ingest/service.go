// Package ingest turns source documents into a populated collection.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/domain/chunking"
	"github.com/kailas-cloud/ragqa/internal/logger"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

// Config is the Indexer's fixed configuration.
type Config struct {
	Collection domain.CollectionSpec
	Chunking   chunking.Params
	SourceURL  string // used by IngestSource when no url is given
}

// Service chunks, embeds and upserts documents, and owns collection (re)creation.
type Service struct {
	colls   CollectionManager
	entries EntryWriter
	embed   Embedder
	fetch   Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New creates an ingestion service. fetch may be nil when only Ingest is used.
func New(
	colls CollectionManager, entries EntryWriter, embed Embedder, fetch Fetcher,
	cfg Config, log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		colls:   colls,
		entries: entries,
		embed:   embed,
		fetch:   fetch,
		cfg:     cfg,
		logger:  log,
	}
}

// Collection returns the name of the collection the service writes to.
func (s *Service) Collection() string { return s.cfg.Collection.Name }

// Reset destructively recreates the collection. All prior entries are dropped.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.colls.Recreate(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("recreate collection %s: %w", s.cfg.Collection.Name, err)
	}
	logger.FromContext(ctx, s.logger).Info("Collection recreated",
		zap.String("collection", s.cfg.Collection.Name),
		zap.Int("dimensions", s.cfg.Collection.Dimensions),
		zap.String("metric", string(s.cfg.Collection.Metric)),
	)
	return nil
}

// HealthCheck reports whether the collection exists with the configured
// dimensions and metric. Before the first Reset it returns domain.ErrNotFound.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.colls.Verify(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("verify collection %s: %w", s.cfg.Collection.Name, err)
	}
	return nil
}

// Ingest chunks the document, embeds every chunk in one batch and writes one
// entry per chunk with ID = chunk index in a single upsert. A document with no
// words yields ChunkCount 0 without touching the embedder or the store.
//
// Entries of a longer, previously ingested document beyond the new chunk
// count are left in place; Reset removes them.
func (s *Service) Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error) {
	start := time.Now()

	res, err := s.ingest(ctx, doc)

	duration := time.Since(start)
	log := logger.FromContext(ctx, s.logger)

	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		log.Error("Ingestion failed",
			zap.String("source", doc.Source),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.IngestResult{}, err
	}

	metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	metrics.IngestChunksTotal.Add(float64(res.ChunkCount))
	metrics.IngestDuration.Observe(duration.Seconds())

	log.Info("Document ingested",
		zap.String("source", doc.Source),
		zap.String("collection", s.cfg.Collection.Name),
		zap.Int("chunks", res.ChunkCount),
		zap.Duration("duration", duration),
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error) {
	doc.Text = chunking.Normalize(doc.Text)

	chunks, err := chunking.Split(doc, s.cfg.Chunking)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("chunk: %w", err)
	}
	words := len(strings.Fields(doc.Text))
	if want := chunking.Count(words, s.cfg.Chunking); len(chunks) != want {
		return domain.IngestResult{}, fmt.Errorf("chunk: got %d chunks for %d words, want %d", len(chunks), words, want)
	}
	if len(chunks) == 0 {
		return domain.IngestResult{Source: doc.Source}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("%w: embed %d chunks: %w", domain.ErrIngestionFailed, len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return domain.IngestResult{}, fmt.Errorf("%w: %w: got %d vectors for %d chunks",
			domain.ErrIngestionFailed, domain.ErrEmbeddingFailure, len(vectors), len(chunks))
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{
			ID:      c.Index,
			Vector:  vectors[i],
			Payload: domain.Payload{Text: c.Text, Source: c.Source},
		}
	}

	if err := s.entries.Upsert(ctx, s.cfg.Collection.Name, entries); err != nil {
		return domain.IngestResult{}, fmt.Errorf("%w: upsert %d entries: %w", domain.ErrIngestionFailed, len(entries), err)
	}

	return domain.IngestResult{Source: doc.Source, ChunkCount: len(chunks)}, nil
}

// IngestConfigured fetches and ingests the configured source. It is the only
// ingestion entry point exposed over HTTP.
func (s *Service) IngestConfigured(ctx context.Context) (domain.IngestResult, error) {
	return s.IngestSource(ctx, "")
}

// IngestSource fetches url (or the configured source when url is empty) and
// ingests it.
func (s *Service) IngestSource(ctx context.Context, url string) (domain.IngestResult, error) {
	if url == "" {
		url = s.cfg.SourceURL
	}
	if url == "" {
		return domain.IngestResult{}, fmt.Errorf("%w: no source url configured", domain.ErrInvalidConfiguration)
	}
	if s.fetch == nil {
		return domain.IngestResult{}, fmt.Errorf("%w: no fetcher configured", domain.ErrInvalidConfiguration)
	}

	ctx = logger.WithFields(ctx, s.logger, zap.String("source", url))

	doc, err := s.fetch.Fetch(ctx, url)
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("Source fetch failed", zap.Error(err))
		return domain.IngestResult{}, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
	}
	return s.Ingest(ctx, doc)
}
