package ragqa

import (
	"context"
	"errors"
	"slices"
	"strings"

	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
)

// HealthStatus is the outcome of probing the vector store, the collection and both models.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // "vector_store", "collection", "embedding", "generation" -> "ok"/"error"
}

// OK reports whether every component answered.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Failing lists the components whose check failed, sorted by name.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health probes the vector store, the collection, the embedder and, when it
// supports health checks, the generator. The collection check fails until the
// first Reset.
func (c *Client) Health(ctx context.Context) HealthStatus {
	done := c.obs.track("health")
	report := c.healthSvc.Check(ctx)

	h := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}

	var err error
	if !h.OK() {
		err = errUnhealthy(h.Failing())
	}
	done(err)
	return h
}

func errUnhealthy(failing []string) error {
	return errors.New("unhealthy: " + strings.Join(failing, ", "))
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
