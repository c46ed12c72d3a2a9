package chi

import (
	"context"

	"github.com/kailas-cloud/ragqa/internal/domain"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
)

// Indexer ingests the configured source and recreates the collection.
type Indexer interface {
	IngestConfigured(ctx context.Context) (domain.IngestResult, error)
	Reset(ctx context.Context) error
	Collection() string
}

// Asker answers questions from the indexed collection.
type Asker interface {
	Ask(ctx context.Context, question string) (domain.AnswerResult, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
