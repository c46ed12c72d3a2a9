package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/logger"
	"github.com/kailas-cloud/ragqa/internal/metrics"
)

// NewRouter mounts the API behind recovery, request ids, the access log and
// HTTP metrics, in that order.
func NewRouter(s *Server, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverJSON(log), chiMiddleware.RequestID, accessLog(log), metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	s.Routes(r)
	return r
}

// recoverJSON turns a handler panic into a 500 error body. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
func recoverJSON(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				switch rvr {
				case nil:
					return
				case http.ErrAbortHandler: //nolint:errorlint // sentinel compared by identity
					panic(rvr)
				}
				log.Error("Handler panicked",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog gives every request a logger tagged with its id and an
// embedding usage collector, then writes one log line when it completes.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := chiMiddleware.GetReqID(r.Context())
			if id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			reqLog := log.With(zap.String("request_id", id))

			ctx, usage := domain.NewContextWithUsage(logger.ContextWithLogger(r.Context(), reqLog))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLog.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("embedding_tokens", usage.Tokens()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
