package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type vectorItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingsServer answers /embeddings with items built by reply from the
// decoded request input.
func embeddingsServer(t *testing.T, reply func(input []string) []vectorItem) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   reply(req.Input),
			"usage":  map[string]int{"prompt_tokens": 3 * len(req.Input), "total_tokens": 3 * len(req.Input)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// reversed encodes len(text) as the only component and answers back to front.
func reversed(input []string) []vectorItem {
	out := make([]vectorItem, 0, len(input))
	for i := len(input) - 1; i >= 0; i-- {
		out = append(out, vectorItem{Object: "embedding", Embedding: []float32{float32(len(input[i]))}, Index: i})
	}
	return out
}

func newTestEmbedder(url, provider string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "all-MiniLM-L6-v2",
		Provider: provider,
		Logger:   zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	srv := embeddingsServer(t, reversed)
	e := newTestEmbedder(srv.URL, "embed-one")

	res, err := e.Embed(context.Background(), "Hotmart")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 1 || res.Embedding[0] != 7 {
		t.Errorf("unexpected vector %v", res.Embedding)
	}
	if res.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d, want 3", res.TotalTokens)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("embed-one", "all-MiniLM-L6-v2", "success")); got != 1 {
		t.Errorf("success counter = %v, want 1", got)
	}
}

func TestEmbedder_SendsKeyAndDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["dimensions"] != float64(256) {
			t.Errorf("dimensions = %v, want 256", req["dimensions"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []vectorItem{{Embedding: []float32{1}}}})
	}))
	defer srv.Close()

	e := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-3-small", Dimensions: 256})
	if _, err := e.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}

func TestEmbedder_BatchEmbed_ReordersByIndex(t *testing.T) {
	srv := embeddingsServer(t, reversed)
	e := newTestEmbedder(srv.URL, "batch")

	res, err := e.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	for i, v := range res.Embeddings {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d = %v, out of input order", i, v)
		}
	}
	if res.PromptTokens != 9 || res.TotalTokens != 9 {
		t.Errorf("unexpected usage %+v", res)
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	res, err := newTestEmbedder("http://127.0.0.1:0", "empty").BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("expected no request for empty input, got %+v, %v", res, err)
	}
}

func TestEmbedder_BatchEmbed_MalformedResponse(t *testing.T) {
	tests := []struct {
		name   string
		reply  func([]string) []vectorItem
		reason string
	}{
		{"short", func([]string) []vectorItem { return []vectorItem{{Embedding: []float32{1}}} }, "count_mismatch"},
		{"repeated index", func(in []string) []vectorItem {
			return []vectorItem{{Embedding: []float32{1}}, {Embedding: []float32{2}}}
		}, "bad_index"},
		{"index out of range", func(in []string) []vectorItem {
			return []vectorItem{{Embedding: []float32{1}}, {Embedding: []float32{2}, Index: 5}}
		}, "bad_index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := embeddingsServer(t, tt.reply)
			e := newTestEmbedder(srv.URL, "malformed-"+tt.name)

			_, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
			c := metrics.EmbeddingErrorsTotal.WithLabelValues("malformed-"+tt.name, "all-MiniLM-L6-v2", tt.reason)
			if got := testutil.ToFloat64(c); got != 1 {
				t.Errorf("%s counter = %v, want 1", tt.reason, got)
			}
		})
	}
}

func TestEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, "limited").Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("limited", "all-MiniLM-L6-v2", "api_error")); got != 1 {
		t.Errorf("api_error counter = %v, want 1", got)
	}
}

func TestEmbedder_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	if err := newTestEmbedder(srv.URL, "health").HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	for body, want := range map[string]string{
		`{"detail":"input too long"}`: "input too long",
		`{"error":"model not loaded"}`: "model not loaded",
		`not json`:                     "",
		`{}`:                           "",
	} {
		if got := extractDetail([]byte(body)); got != want {
			t.Errorf("extractDetail(%s) = %q, want %q", body, got, want)
		}
	}
}
