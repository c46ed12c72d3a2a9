package health

import "context"

// DBPinger checks vector store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks one dependency's availability: a model provider or the collection.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
