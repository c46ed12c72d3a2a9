package ragqa

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/ragqa/internal/domain"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
)

func TestClient_Ingest(t *testing.T) {
	var got domain.Document
	c := testClient(&mockIngestUC{
		ingestFn: func(_ context.Context, doc domain.Document) (domain.IngestResult, error) {
			got = doc
			return domain.IngestResult{Source: doc.Source, ChunkCount: 12}, nil
		},
	}, nil, nil)

	res, err := c.Ingest(context.Background(), "https://example.com", "some page text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "https://example.com" || got.Text != "some page text" {
		t.Errorf("document = %+v", got)
	}
	if res.ChunkCount != 12 || res.Source != "https://example.com" {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_Ingest_Error(t *testing.T) {
	c := testClient(&mockIngestUC{
		ingestFn: func(context.Context, domain.Document) (domain.IngestResult, error) {
			return domain.IngestResult{}, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, domain.ErrEmbeddingFailure)
		},
	}, nil, nil)

	_, err := c.Ingest(context.Background(), "s", "t")
	if !errors.Is(err, ErrIngestionFailed) || !errors.Is(err, ErrEmbeddingFailure) {
		t.Fatalf("expected ingestion and embedding sentinels, got %v", err)
	}
}

func TestClient_Reset(t *testing.T) {
	calls := 0
	c := testClient(&mockIngestUC{
		resetFn: func(context.Context) error {
			calls++
			return nil
		},
	}, nil, nil)

	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 reset, got %d", calls)
	}
}

func TestClient_Retrieve(t *testing.T) {
	var gotK int
	c := testClient(nil, &mockRetrieveUC{
		retrieveFn: func(_ context.Context, _ string, topK int) ([]domain.SearchHit, error) {
			gotK = topK
			return []domain.SearchHit{
				{Payload: domain.Payload{Text: "first", Source: "s"}, Score: 0.9},
				{Payload: domain.Payload{Text: "second", Source: "s"}, Score: 0.5},
			}, nil
		},
	}, nil)

	hits, err := c.Retrieve(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotK != 2 {
		t.Errorf("topK = %d, want 2", gotK)
	}
	if len(hits) != 2 || hits[0].Text != "first" || hits[0].Score != 0.9 || hits[1].Text != "second" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestClient_Retrieve_Empty(t *testing.T) {
	c := testClient(nil, &mockRetrieveUC{
		retrieveFn: func(context.Context, string, int) ([]domain.SearchHit, error) {
			return []domain.SearchHit{}, nil
		},
	}, nil)

	hits, err := c.Retrieve(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil hits, got %#v", hits)
	}
}

func TestClient_Ask(t *testing.T) {
	c := testClient(nil, nil, &mockAnswerUC{
		askFn: func(_ context.Context, q string, topK int) (domain.AnswerResult, error) {
			if topK != 0 {
				t.Errorf("Ask must use the default topK, got %d", topK)
			}
			return domain.AnswerResult{
				Question:    q,
				Answer:      "42",
				ContextUsed: "ctx",
				Hits:        []domain.SearchHit{{Payload: domain.Payload{Text: "ctx"}, Score: 1}},
			}, nil
		},
	})

	ans, err := c.Ask(context.Background(), "meaning?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Question != "meaning?" || ans.Answer != "42" || ans.ContextUsed != "ctx" || len(ans.Hits) != 1 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestClient_Ask_InvalidRequest(t *testing.T) {
	c := testClient(nil, nil, &mockAnswerUC{
		askFn: func(context.Context, string, int) (domain.AnswerResult, error) {
			return domain.AnswerResult{}, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidRequest)
		},
	})

	if _, err := c.Ask(context.Background(), " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

type stubHealth struct{ report healthuc.Report }

func (s stubHealth) Check(context.Context) healthuc.Report { return s.report }

func TestClient_Health(t *testing.T) {
	c := testClient(nil, nil, nil)
	c.healthSvc = stubHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"vector_store": healthuc.CheckOK,
			"generation":   healthuc.CheckError,
			"embedding":    healthuc.CheckError,
		},
	}}

	h := c.Health(context.Background())
	if h.OK() {
		t.Error("degraded status must not be OK")
	}
	if h.Status != "degraded" || h.Checks["vector_store"] != "ok" {
		t.Errorf("unexpected status %+v", h)
	}
	if got := h.Failing(); len(got) != 2 || got[0] != "embedding" || got[1] != "generation" {
		t.Errorf("Failing() = %v, want [embedding generation]", got)
	}
}

func TestClient_Health_AllOK(t *testing.T) {
	c := testClient(nil, nil, nil)
	c.healthSvc = stubHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"vector_store": healthuc.CheckOK},
	}}

	h := c.Health(context.Background())
	if !h.OK() || len(h.Failing()) != 0 {
		t.Errorf("expected healthy, got %+v", h)
	}
}
