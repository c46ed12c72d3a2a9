// Package chi exposes the ingestion and question answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/logger"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest           = "bad_request"
	CodeInvalidConfiguration = "invalid_configuration"
	CodeEmbeddingFailure     = "embedding_failure"
	CodeIngestionFailed      = "ingestion_failed"
	CodeGenerationFailed     = "generation_failed"
	CodeNotFound             = "not_found"
	CodeInternalError        = "internal_error"
)

// maxBodyBytes bounds request bodies; questions are small.
const maxBodyBytes = 1 << 20

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	Message   string `json:"message"`
	NumChunks int    `json:"num_chunks"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	ContextUsed string `json:"context_used"`
}

// ResetResponse is returned by POST /reset.
type ResetResponse struct {
	Message    string `json:"message"`
	Collection string `json:"collection"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the pipeline's HTTP API.
type Server struct {
	indexer       Indexer
	asker         Asker
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(indexer Indexer, asker Asker, health HealthChecker, log *zap.Logger) *Server {
	s := &Server{
		indexer: indexer,
		asker:   asker,
		health:  health,
		logger:  log,
	}
	// order matters: wrapping sentinels come before the causes they wrap
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrInvalidConfiguration, http.StatusBadRequest, CodeInvalidConfiguration),
		sentinelHandler(domain.ErrIngestionFailed, http.StatusBadGateway, CodeIngestionFailed),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway, CodeEmbeddingFailure),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingFailure),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/ingest", s.Ingest)
	r.Post("/ask", s.Ask)
	r.Post("/reset", s.Reset)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Ingest handles POST /ingest. It always ingests the configured source; any
// request body is ignored so clients cannot point the fetcher elsewhere.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx, usage := usageScope(r)
	res, err := s.indexer.IngestConfigured(ctx)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, IngestResponse{
		Message:   "Ingestion completed",
		NumChunks: res.ChunkCount,
	})
}

// Ask handles POST /ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := usageScope(r)
	res, err := s.asker.Ask(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, AskResponse{
		Question:    res.Question,
		Answer:      res.Answer,
		ContextUsed: res.ContextUsed,
	})
}

// Reset handles POST /reset: destructive recreation of the collection.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Reset(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{
		Message:    "Collection recreated",
		Collection: s.indexer.Collection(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// usageScope returns the request's usage collector, attaching one when the
// handler runs outside the router.
func usageScope(r *http.Request) (context.Context, *domain.EmbeddingUsage) {
	if u := domain.UsageFromContext(r.Context()); u != nil {
		return r.Context(), u
	}
	return domain.NewContextWithUsage(r.Context())
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the client-facing message for err. Invalid
// requests and configurations carry their own detail; upstream failures are
// reduced to the sentinel text.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidConfiguration) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrIngestionFailed,
		domain.ErrEmbeddingFailure,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
		domain.ErrNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
