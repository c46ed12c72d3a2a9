// Package health probes the vector store, the collection and the model providers.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the overall verdict of a Report.
type Status string

// Healthy means every probe passed; Degraded means a model or collection probe
// failed; Unhealthy means the vector store is unreachable.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentVectorStore = "vector_store"
	ComponentEmbedding   = "embedding"
	ComponentGeneration  = "generation"
	ComponentCollection  = "collection"
)

// DefaultProbeTimeout bounds each probe.
const DefaultProbeTimeout = 5 * time.Second

// Report holds the per-component results and the overall status.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs the probes.
type Service struct {
	db      DBPinger
	probes  map[string]Checker
	timeout time.Duration
}

// New creates a Service. embedding and generation may be nil and are then
// left out of the report.
func New(db DBPinger, embedding, generation Checker) *Service {
	probes := make(map[string]Checker, 3)
	if embedding != nil {
		probes[ComponentEmbedding] = embedding
	}
	if generation != nil {
		probes[ComponentGeneration] = generation
	}
	return &Service{db: db, probes: probes, timeout: DefaultProbeTimeout}
}

// WithTimeout sets the per-probe timeout; d <= 0 keeps the current one.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithCollection adds a probe that the collection exists with the configured
// shape. A missing collection degrades the report: questions still get answers
// from an empty context until the first reset and ingestion.
func (s *Service) WithCollection(c Checker) *Service {
	if c != nil {
		s.probes[ComponentCollection] = c
	}
	return s
}

// Check runs all probes concurrently. A hung provider costs at most the
// probe timeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.probes)+1)
	)
	run := func(name string, probe func(context.Context) error) {
		wg.Go(func() {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := resultOf(probe(pctx))
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		})
	}

	run(ComponentVectorStore, s.db.Ping)
	for name, c := range s.probes {
		run(name, c.HealthCheck)
	}
	wg.Wait()

	return Report{Status: verdict(checks), Checks: checks}
}

func verdict(checks map[string]CheckResult) Status {
	if checks[ComponentVectorStore] == CheckError {
		return Unhealthy
	}
	for _, r := range checks {
		if r == CheckError {
			return Degraded
		}
	}
	return Healthy
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
