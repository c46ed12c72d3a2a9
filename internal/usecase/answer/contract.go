package answer

import (
	"context"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Retriever returns the hits most similar to a question. topK <= 0 uses its default.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]domain.SearchHit, error)
}
