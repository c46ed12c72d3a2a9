package ingest

import (
	"context"
	"strings"

	"github.com/kailas-cloud/ragqa/internal/domain"
)

type mockCollections struct {
	recreateFn func(ctx context.Context, spec domain.CollectionSpec) error
	verifyErr  error
	calls      []domain.CollectionSpec
	verified   []domain.CollectionSpec
}

func (m *mockCollections) Recreate(ctx context.Context, spec domain.CollectionSpec) error {
	m.calls = append(m.calls, spec)
	if m.recreateFn != nil {
		return m.recreateFn(ctx, spec)
	}
	return nil
}

func (m *mockCollections) Verify(_ context.Context, spec domain.CollectionSpec) error {
	m.verified = append(m.verified, spec)
	return m.verifyErr
}

type mockEntries struct {
	upsertFn   func(ctx context.Context, collection string, entries []domain.IndexEntry) error
	calls      int
	collection string
	entries    []domain.IndexEntry
}

func (m *mockEntries) Upsert(ctx context.Context, collection string, entries []domain.IndexEntry) error {
	m.calls++
	m.collection = collection
	m.entries = entries
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, entries)
	}
	return nil
}

// mockEmbedder returns [len(words), 1] per text unless embedFn is set.
type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	calls   int
	texts   []string
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.texts = texts
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(strings.Fields(t))), 1}
	}
	return out, nil
}

type mockFetcher struct {
	fetchFn func(ctx context.Context, url string) (domain.Document, error)
	urls    []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (domain.Document, error) {
	m.urls = append(m.urls, url)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return domain.Document{Source: url, Text: "fetched page text"}, nil
}
