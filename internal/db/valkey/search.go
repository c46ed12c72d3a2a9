package valkey

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragqa/internal/db"
)

// scoreField is the distance FT.SEARCH attaches to KNN hits.
const scoreField = "__vector_score"

// SearchKNN runs a KNN query and returns hits most similar first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := knnArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Do(ctx, s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if indexMissing(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Key: q.IndexName, Err: err}
	}
	return parseKNNReply(raw, q.Distance)
}

func knnArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: query vector is empty")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	k := strconv.Itoa(q.K)
	args := []string{q.IndexName, "*=>[KNN " + k + " @" + db.VectorAlias + " $BLOB]"}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField)
	}
	return append(args,
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", string(db.EncodeVector(q.Vector)),
		"DIALECT", "2",
	), nil
}

// parseKNNReply reads the RESP2 reply [total, key1, [f, v, ...], key2, ...].
// FT.SEARCH does not order KNN hits without SORTBY, so they are sorted here.
func parseKNNReply(raw []rueidis.RedisMessage, metric db.DistanceMetric) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("knn reply: total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("knn reply: key %d: %w", i/2, err)
		}
		fields, err := raw[i+1].AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("knn reply: fields of %s: %w", key, err)
		}

		e := db.SearchEntry{Key: key, Fields: fields}
		if d, err := strconv.ParseFloat(fields[scoreField], 64); err == nil {
			e.Score = db.Similarity(d, metric)
		}
		delete(e.Fields, scoreField)
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}
