package ragqa

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics are shared by every Client registered on the same Registerer.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	chunks     *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "ragqa", Subsystem: "sdk", Name: name, Help: help}
	}
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("operations_total", "SDK operations by collection, operation and status.")),
			[]string{"collection", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collection", "operation"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("chunks_ingested_total", "Chunks written through the SDK.")),
			[]string{"collection"}),
	}
	err := errors.Join(
		adopt(reg, &m.operations),
		adopt(reg, &m.duration),
		adopt(reg, &m.chunks),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// adopt registers *c, or points it at the collector already registered
// under the same descriptor.
func adopt[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	var dup prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &dup):
		return fmt.Errorf("ragqa: register metric: %w", err)
	}
	existing, ok := dup.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("ragqa: metric registered with type %T", dup.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts the operations of one Client. Every method is
// safe on a nil observer and with either sink missing.
type observer struct {
	collection string
	logger     *slog.Logger
	metrics    *sdkMetrics
}

func newObserver(collection string, logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{collection: collection}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	if logger != nil {
		o.logger = logger.With("collection", collection)
	}
	return o, nil
}

// track starts timing op. Call the returned func once with the outcome.
func (o *observer) track(op string) func(error) {
	start := time.Now()
	return func(err error) { o.record(op, time.Since(start), err) }
}

func (o *observer) record(op string, took time.Duration, err error) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(o.collection, op, status).Inc()
		o.metrics.duration.WithLabelValues(o.collection, op).Observe(took.Seconds())
	}
	switch {
	case o.logger == nil:
	case err != nil:
		o.logger.Warn("operation failed", "op", op, "duration", took, "error", err)
	default:
		o.logger.Debug("operation completed", "op", op, "duration", took)
	}
}

func (o *observer) ingested(chunks int) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.chunks.WithLabelValues(o.collection).Add(float64(chunks))
	}
	if o.logger != nil {
		o.logger.Info("ingestion completed", "chunks", chunks)
	}
}
