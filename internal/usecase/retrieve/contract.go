package retrieve

import (
	"context"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Searcher runs KNN queries. A missing collection is reported as domain.ErrNotFound.
type Searcher interface {
	Search(ctx context.Context, collectionName string, vector []float32, limit int) ([]domain.SearchHit, error)
}

// Embedder vectorizes a single query text.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}
