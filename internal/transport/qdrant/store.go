// Package qdrant is a vector store backend over the Qdrant REST API. It serves
// the same collection and entry contracts as the valkey repositories.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
)

// Config holds Qdrant connection settings.
type Config struct {
	URL     string
	APIKey  string
	Metric  domain.Metric // used to turn euclid distances into similarities
	Timeout time.Duration
}

// Store implements collection recreation, upsert and KNN search on Qdrant.
type Store struct {
	url    string
	apiKey string
	metric domain.Metric
	client *http.Client
}

// errNotFound marks a 404 from Qdrant.
var errNotFound = errors.New("qdrant: not found")

// NewStore creates a Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	metric := cfg.Metric
	if metric == "" {
		metric = domain.MetricCosine
	}

	return &Store{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		metric: metric,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// distanceName maps a metric onto Qdrant's distance names.
func distanceName(m domain.Metric) string {
	switch m {
	case domain.MetricL2:
		return "Euclid"
	case domain.MetricIP:
		return "Dot"
	default:
		return "Cosine"
	}
}

// Recreate drops the collection if present and creates it empty.
func (s *Store) Recreate(ctx context.Context, spec domain.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	if err := s.do(ctx, http.MethodDelete, s.collectionURL(spec.Name), nil, nil); err != nil &&
		!errors.Is(err, errNotFound) {
		return fmt.Errorf("drop collection %s: %w", spec.Name, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.Dimensions,
			"distance": distanceName(spec.Metric),
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(spec.Name), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", spec.Name, err)
	}
	return nil
}

// Verify checks that the collection exists with spec's vector size and
// distance. A missing collection yields domain.ErrNotFound.
func (s *Store) Verify(ctx context.Context, spec domain.CollectionSpec) error {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	err := s.do(ctx, http.MethodGet, s.collectionURL(spec.Name), nil, &resp)
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("collection %s: %w", spec.Name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get collection %s: %w", spec.Name, err)
	}

	vectors := resp.Result.Config.Params.Vectors
	stored := domain.CollectionSpec{Name: spec.Name, Dimensions: vectors.Size, Metric: metricOf(vectors.Distance)}
	return spec.CheckStored(stored)
}

// metricOf is the inverse of distanceName.
func metricOf(distance string) domain.Metric {
	switch distance {
	case "Euclid":
		return domain.MetricL2
	case "Dot":
		return domain.MetricIP
	case "Cosine":
		return domain.MetricCosine
	default:
		return domain.Metric(strings.ToLower(distance))
	}
}

type point struct {
	ID      int            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes entries in one request and waits for them to be indexed.
func (s *Store) Upsert(ctx context.Context, collectionName string, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]point, len(entries))
	for i, e := range entries {
		payload := map[string]any{"text": e.Payload.Text, "seq": e.ID}
		if e.Payload.Source != "" {
			payload["source"] = e.Payload.Source
		}
		points[i] = point{ID: e.ID, Vector: e.Vector, Payload: payload}
	}

	err := s.do(ctx, http.MethodPut, s.collectionURL(collectionName)+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("collection %s: %w", collectionName, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the limit nearest entries, most similar first. A missing
// collection yields domain.ErrNotFound.
func (s *Store) Search(
	ctx context.Context, collectionName string, vector []float32, limit int,
) ([]domain.SearchHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Text   string `json:"text"`
				Source string `json:"source"`
			} `json:"payload"`
		} `json:"result"`
	}

	err := s.do(ctx, http.MethodPost, s.collectionURL(collectionName)+"/points/search", req, &resp)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("collection %s: %w", collectionName, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		if s.metric == domain.MetricL2 {
			score = db.Similarity(r.Score, db.DistanceL2)
		}
		hits = append(hits, domain.SearchHit{
			Payload: domain.Payload{Text: r.Payload.Text, Source: r.Payload.Source},
			Score:   score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Ping checks the /healthz endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, s.url+"/healthz", nil, nil); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until Qdrant responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close releases idle connections.
func (s *Store) Close() {
	s.client.CloseIdleConnections()
}

func (s *Store) collectionURL(name string) string {
	return s.url + "/collections/" + url.PathEscape(name)
}

func (s *Store) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s %s", method, target, resp.Status, strings.TrimSpace(string(b)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
