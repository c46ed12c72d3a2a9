package ingest

import (
	"context"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// CollectionManager recreates the collection the pipeline writes to and
// checks that it is in place.
type CollectionManager interface {
	Recreate(ctx context.Context, spec domain.CollectionSpec) error
	Verify(ctx context.Context, spec domain.CollectionSpec) error
}

// EntryWriter stores index entries in bulk.
type EntryWriter interface {
	Upsert(ctx context.Context, collectionName string, entries []domain.IndexEntry) error
}

// Embedder vectorizes chunk texts; out[i] belongs to texts[i].
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Fetcher retrieves a source document as normalized plain text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domain.Document, error)
}
