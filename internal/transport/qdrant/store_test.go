package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

// fakeQdrant records requests and answers with per-route handlers.
type fakeQdrant struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc // "METHOD /path"
}

func newFakeQdrant(t *testing.T, routes map[string]http.HandlerFunc) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			APIKey: r.Header.Get("api-key"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()

		if h, ok := f.routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestStore(t *testing.T, url string, metric domain.Metric) *Store {
	t.Helper()
	s, err := NewStore(Config{URL: url, APIKey: "secret", Metric: metric})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStore_RequiresURL(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestRecreate(t *testing.T) {
	f, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"DELETE /collections/docs": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	})
	s := newTestStore(t, srv.URL, domain.MetricL2)

	err := s.Recreate(context.Background(), domain.CollectionSpec{Name: "docs", Dimensions: 384, Metric: domain.MetricL2})
	if err != nil {
		t.Fatalf("Recreate: %v", err)
	}

	if len(f.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(f.requests))
	}
	if f.requests[0].Method != http.MethodDelete {
		t.Errorf("expected DELETE first, got %s", f.requests[0].Method)
	}
	create := f.requests[1]
	if create.Method != http.MethodPut || create.Path != "/collections/docs" {
		t.Fatalf("unexpected create request %s %s", create.Method, create.Path)
	}
	vectors, _ := create.Body["vectors"].(map[string]any)
	if vectors["size"] != float64(384) || vectors["distance"] != "Euclid" {
		t.Errorf("unexpected vectors config %v", vectors)
	}
	if create.APIKey != "secret" {
		t.Errorf("api-key header not sent")
	}
}

func TestRecreate_InvalidSpec(t *testing.T) {
	s := newTestStore(t, "http://unused", "")
	err := s.Recreate(context.Background(), domain.CollectionSpec{Name: "docs"})
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	info := func(size int, distance string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"status": "green",
					"config": map[string]any{
						"params": map[string]any{"vectors": map[string]any{"size": size, "distance": distance}},
					},
				},
			})
		}
	}
	spec := domain.CollectionSpec{Name: "docs", Dimensions: 384, Metric: domain.MetricL2}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{"matching", info(384, "Euclid"), nil},
		{"other size", info(768, "Euclid"), domain.ErrInvalidConfiguration},
		{"other distance", info(384, "Cosine"), domain.ErrInvalidConfiguration},
		{"missing", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{"GET /collections/docs": tt.handler})
			err := newTestStore(t, srv.URL, domain.MetricL2).Verify(context.Background(), spec)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpsert(t *testing.T) {
	f, srv := newFakeQdrant(t, nil)
	s := newTestStore(t, srv.URL, "")

	entries := []domain.IndexEntry{
		{ID: 0, Vector: []float32{1, 0}, Payload: domain.Payload{Text: "first", Source: "https://x"}},
		{ID: 1, Vector: []float32{0, 1}, Payload: domain.Payload{Text: "second"}},
	}
	if err := s.Upsert(context.Background(), "docs", entries); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if len(f.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(f.requests))
	}
	req := f.requests[0]
	if req.Path != "/collections/docs/points" || req.Query != "wait=true" {
		t.Errorf("unexpected target %s?%s", req.Path, req.Query)
	}
	points, _ := req.Body["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	second, _ := points[1].(map[string]any)
	if second["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", second["id"])
	}
	payload, _ := second["payload"].(map[string]any)
	if payload["text"] != "second" {
		t.Errorf("unexpected payload %v", payload)
	}
	if _, ok := payload["source"]; ok {
		t.Errorf("empty source must be omitted")
	}
}

func TestUpsert_Empty(t *testing.T) {
	f, srv := newFakeQdrant(t, nil)
	s := newTestStore(t, srv.URL, "")

	if err := s.Upsert(context.Background(), "docs", nil); err != nil {
		t.Fatal(err)
	}
	if len(f.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(f.requests))
	}
}

func TestSearch(t *testing.T) {
	_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"POST /collections/docs/points/search": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":[
				{"id":1,"score":0.5,"payload":{"text":"b","seq":1}},
				{"id":0,"score":0.9,"payload":{"text":"a","source":"s","seq":0}}
			]}`))
		},
	})
	s := newTestStore(t, srv.URL, domain.MetricCosine)

	hits, err := s.Search(context.Background(), "docs", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Payload.Text != "a" || hits[0].Score != 0.9 || hits[0].Payload.Source != "s" {
		t.Errorf("unexpected first hit %+v", hits[0])
	}
	if hits[1].Payload.Text != "b" {
		t.Errorf("unexpected second hit %+v", hits[1])
	}
}

func TestSearch_EuclidScoresBecomeSimilarities(t *testing.T) {
	_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"POST /collections/docs/points/search": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":[
				{"id":0,"score":0,"payload":{"text":"exact"}},
				{"id":1,"score":1,"payload":{"text":"far"}}
			]}`))
		},
	})
	s := newTestStore(t, srv.URL, domain.MetricL2)

	hits, err := s.Search(context.Background(), "docs", []float32{1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Payload.Text != "exact" || hits[0].Score != 1 {
		t.Errorf("unexpected first hit %+v", hits[0])
	}
	if hits[1].Score != 0.5 {
		t.Errorf("expected 1/(1+1)=0.5, got %f", hits[1].Score)
	}
}

func TestSearch_MissingCollection(t *testing.T) {
	_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"POST /collections/docs/points/search": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	})
	s := newTestStore(t, srv.URL, "")

	_, err := s.Search(context.Background(), "docs", []float32{1}, 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"POST /collections/docs/points/search": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	s := newTestStore(t, srv.URL, "")

	_, err := s.Search(context.Background(), "docs", []float32{1}, 3)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestSearch_UnreachableServerNamesRequest(t *testing.T) {
	_, srv := newFakeQdrant(t, nil)
	s := newTestStore(t, srv.URL, "")
	srv.Close()

	_, err := s.Search(context.Background(), "docs", []float32{1}, 3)
	if err == nil {
		t.Fatal("expected transport error")
	}
	want := "qdrant POST " + srv.URL + "/collections/docs/points/search"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name the request %q", err, want)
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Errorf("expected the transport cause to stay wrapped, got %T", errors.Unwrap(err))
	}
}

func TestPingAndWaitForReady(t *testing.T) {
	_, srv := newFakeQdrant(t, nil)
	s := newTestStore(t, srv.URL, "")

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	_, srv := newFakeQdrant(t, map[string]http.HandlerFunc{
		"GET /healthz": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	s := newTestStore(t, srv.URL, "")

	if err := s.WaitForReady(context.Background(), 250*time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}
