package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register adds the provider and pipeline collectors to the default registry.
// HTTP metrics register themselves on import. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			GenerationRequestsTotal,
			GenerationDuration,
			GenerationTokensTotal,
			IngestRunsTotal,
			IngestChunksTotal,
			IngestDuration,
			RetrievalHits,
		)
	})
}
