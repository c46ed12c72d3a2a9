package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ragqa"

// Indexer and retriever metrics.
var (
	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome (success, error).",
		},
		[]string{"status"},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks written to the vector store.",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion duration, fetch excluded.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RetrievalHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_hits",
			Help:      "Hits returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)
)
