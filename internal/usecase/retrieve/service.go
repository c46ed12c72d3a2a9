// Package retrieve finds the chunks most similar to a question.
package retrieve

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

// DefaultTopK is the number of hits returned when the caller passes topK <= 0.
const DefaultTopK = 3

// Service embeds questions and queries the vector store.
type Service struct {
	search     Searcher
	embed      Embedder
	collection string
	topK       int
}

// New creates a retrieval service over collection. topK <= 0 means DefaultTopK.
func New(search Searcher, embed Embedder, collection string, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{search: search, embed: embed, collection: collection, topK: topK}
}

// TopK returns the default number of hits.
func (s *Service) TopK() int { return s.topK }

// Retrieve returns at most topK hits ordered by descending similarity, as
// ranked by the store. A missing or empty collection yields no hits and no error.
func (s *Service) Retrieve(ctx context.Context, question string, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = s.topK
	}

	vector, err := s.embed.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	hits, err := s.search.Search(ctx, s.collection, vector, topK)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.RetrievalHits.Observe(0)
		return []domain.SearchHit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}

	metrics.RetrievalHits.Observe(float64(len(hits)))
	return hits, nil
}
