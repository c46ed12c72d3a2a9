package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a request-scoped logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger. Without one it returns the
// first non-nil fallback, then a no-op logger.
func FromContext(ctx context.Context, fallback ...*zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	for _, l := range fallback {
		if l != nil {
			return l
		}
	}
	return zap.NewNop()
}

// WithFields returns a context whose logger carries fields on every entry.
// base is used when ctx has no logger yet.
func WithFields(ctx context.Context, base *zap.Logger, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return ContextWithLogger(ctx, FromContext(ctx, base).With(fields...))
}
