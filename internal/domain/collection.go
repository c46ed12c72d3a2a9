package domain

import (
	"fmt"
	"regexp"
)

// Metric is the similarity metric of a collection.
type Metric string

const (
	// MetricCosine ranks by cosine similarity.
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by euclidean distance.
	MetricL2 Metric = "l2"
	// MetricIP ranks by inner product.
	MetricIP Metric = "ip"
)

// ParseMetric converts a config string into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricCosine, MetricL2, MetricIP:
		return m, nil
	case "":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidConfiguration, s)
	}
}

// collectionName restricts names to characters that cannot form a key
// separator or a glob pattern in the vector store's keyspace.
var collectionName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidCollectionName reports whether name is usable as a collection name:
// non-empty letters, digits, '_' and '-'.
func ValidCollectionName(name string) bool { return collectionName.MatchString(name) }

// CollectionSpec describes a collection at (re)creation time. A collection is
// created whole and never migrated.
type CollectionSpec struct {
	Name       string
	Dimensions int
	Metric     Metric
}

// Validate checks that the collection can be created.
func (c CollectionSpec) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidConfiguration)
	}
	if !ValidCollectionName(c.Name) {
		return fmt.Errorf("%w: collection name %q may only contain letters, digits, '_' and '-'",
			ErrInvalidConfiguration, c.Name)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidConfiguration, c.Dimensions)
	}
	if _, err := ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	return nil
}

// CheckStored compares a stored collection against the configured spec. A
// collection created with other dimensions or metric must be recreated.
func (c CollectionSpec) CheckStored(stored CollectionSpec) error {
	if stored.Dimensions != c.Dimensions || stored.Metric != c.Metric {
		return fmt.Errorf("%w: collection %s has %d dimensions (%s), configured %d (%s)",
			ErrInvalidConfiguration, c.Name, stored.Dimensions, stored.Metric, c.Dimensions, c.Metric)
	}
	return nil
}

// CheckDimensions verifies that every vector has exactly dim components.
func CheckDimensions(vectors [][]float32, dim int) error {
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d components, want %d", ErrVectorDimMismatch, i, len(v), dim)
		}
	}
	return nil
}
