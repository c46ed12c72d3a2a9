package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates embedding tokens spent while serving one request.
// The transport attaches it to the context; the embedding adapter adds to it.
// Safe for concurrent use.
type EmbeddingUsage struct {
	mu     sync.Mutex
	tokens int
	calls  int
}

// NewContextWithUsage returns ctx carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records one embedding call that consumed n tokens.
// A cache hit is a call with n == 0. No-op on a nil collector.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += n
	u.calls++
	u.mu.Unlock()
}

// Tokens returns the tokens recorded so far.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens
}

// Used reports whether the embedder was called at least once.
func (u *EmbeddingUsage) Used() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls > 0
}
