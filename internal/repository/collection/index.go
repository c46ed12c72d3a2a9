package collection

import (
	"github.com/kailas-cloud/ragqa/internal/db"
	"github.com/kailas-cloud/ragqa/internal/domain"
	"github.com/kailas-cloud/ragqa/internal/repository/keyspace"
)

// Hash fields of an entry. KNN queries address FieldVector as db.VectorAlias.
const (
	FieldContent = "__content"
	FieldVector  = "__vector"
	FieldSource  = "source"
	FieldSeq     = "seq"
)

// DistanceFor maps a collection metric to the FT distance metric.
func DistanceFor(m domain.Metric) db.DistanceMetric {
	switch m {
	case domain.MetricL2:
		return db.DistanceL2
	case domain.MetricIP:
		return db.DistanceIP
	default:
		return db.DistanceCosine
	}
}

// vectorIndex describes the FT index of a collection: an HNSW vector field
// over the collection's entry hashes plus the numeric chunk sequence.
func vectorIndex(keys keyspace.Keyspace, spec domain.CollectionSpec, hnsw HNSWConfig) *db.VectorIndex {
	return &db.VectorIndex{
		Name:        keys.Index(spec.Name),
		Prefix:      keys.EntryPrefix(spec.Name),
		VectorField: FieldVector,
		Dimensions:  spec.Dimensions,
		Distance:    DistanceFor(spec.Metric),
		HNSW:        &db.HNSWParams{M: hnsw.M, EFConstruction: hnsw.EFConstruct},
		Numeric:     []string{FieldSeq},
	}
}
