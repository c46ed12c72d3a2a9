// Package entry stores index entries as hashes and queries them through the
// collection's FT index.
package entry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/repository/collection"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
)

// store is the consumer interface for entries (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo writes and searches index entries.
type Repo struct {
	store    store
	keys     keyspace.Keyspace
	distance db.DistanceMetric
}

// New creates an entry repository for collections using metric.
func New(s store, keys keyspace.Keyspace, metric domain.Metric) *Repo {
	return &Repo{store: s, keys: keys, distance: collection.DistanceFor(metric)}
}

// Upsert writes all entries in one pipelined round-trip. An entry with an
// existing id replaces the stored one.
func (r *Repo) Upsert(ctx context.Context, collectionName string, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		items[i] = db.HashSetItem{
			Key:    r.keys.Entry(collectionName, e.ID),
			Fields: entryToHash(e),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d entries into %s: %w", len(entries), collectionName, err)
	}
	return nil
}

// Search returns up to limit entries nearest to vector, most similar first.
// A missing collection yields domain.ErrNotFound.
func (r *Repo) Search(
	ctx context.Context, collectionName string, vector []float32, limit int,
) ([]domain.SearchHit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.Index(collectionName),
		Vector:       vector,
		K:            limit,
		Distance:     r.distance,
		ReturnFields: []string{collection.FieldContent, collection.FieldSource},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("knn search %s: %w", collectionName, err)
	}

	hits := make([]domain.SearchHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, domain.SearchHit{
			Payload: domain.Payload{
				Text:   e.Fields[collection.FieldContent],
				Source: e.Fields[collection.FieldSource],
			},
			Score: e.Score,
		})
	}
	return hits, nil
}

func entryToHash(e domain.IndexEntry) map[string]string {
	return map[string]string{
		collection.FieldContent: e.Payload.Text,
		collection.FieldSource:  e.Payload.Source,
		collection.FieldSeq:     strconv.Itoa(e.ID),
		collection.FieldVector:  string(db.EncodeVector(e.Vector)),
	}
}
