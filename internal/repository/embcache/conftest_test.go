package embcache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
	"go.uber.org/zap"
)

// countingEmbedder returns [len(text), 1] for every text and records what it saw.
type countingEmbedder struct {
	mu       sync.Mutex
	seen     []string
	batches  int
	err      error
	short    bool // return one vector fewer than asked
	perToken int
}

func (e *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	e.seen = append(e.seen, text)
	return domain.EmbeddingResult{Embedding: vectorFor(text), TotalTokens: e.perToken}, nil
}

func (e *countingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches++
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	e.seen = append(e.seen, texts...)
	n := len(texts)
	if e.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = vectorFor(texts[i])
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: e.perToken * len(texts)}, nil
}

func vectorFor(text string) []float32 { return []float32{float32(len(text)), 1} }

// memStore is an in-memory key-value store with optional failure injection.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.setKeys = append(s.setKeys, key)
	s.data[key] = value
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// corruptAll overwrites every cached value with bytes that do not decode.
func (s *memStore) corruptAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		s.data[k] = []byte{1, 2, 3}
	}
}

func newCache(inner domain.Embedder, s *memStore, model string) *CachedEmbedder {
	return New(inner, s, keyspace.New("ragqa:"), model, nil, zap.NewNop())
}

var errProvider = errors.New("provider unavailable")

func hasPrefix(keys []string, prefix string) bool {
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
	}
	return len(keys) > 0
}
