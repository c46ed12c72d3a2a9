package ragqa

import "github.com/kailas-cloud/ragqa/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidConfiguration   = domain.ErrInvalidConfiguration
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingFailure       = domain.ErrEmbeddingFailure
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrIngestionFailed        = domain.ErrIngestionFailed
	ErrGenerationFailed       = domain.ErrGenerationFailed
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrNotFound               = domain.ErrNotFound
)
