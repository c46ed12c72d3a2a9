package domain

import "errors"

var (
	// ErrInvalidConfiguration signals chunking or pipeline parameters that cannot work,
	// such as an overlap not smaller than the window.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingFailure signals that the embedder could not produce a consistent
	// vector per input text.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrVectorDimMismatch signals a vector whose length differs from the collection dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIngestionFailed signals that an ingestion run did not complete.
	ErrIngestionFailed = errors.New("ingestion failed")
	// ErrFetchFailed signals that a source document could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrGenerationFailed signals a generative model failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotFound signals a missing collection or index.
	ErrNotFound = errors.New("not found")
)
