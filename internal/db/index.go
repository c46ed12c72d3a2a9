package db

import (
	"errors"
	"fmt"
	"strconv"
)

// DistanceMetric is the DISTANCE_METRIC of a vector field.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlias is the name KNN queries use for the vector field of every index.
const VectorAlias = "vector"

// HNSWParams tunes an HNSW graph. Zero values keep the server defaults.
type HNSWParams struct {
	M              int
	EFConstruction int
}

// VectorIndex is an FT index over the hashes under Prefix with a single
// FLOAT32 vector field and optional numeric fields. A nil HNSW builds a FLAT
// (brute-force) index.
type VectorIndex struct {
	Name        string
	Prefix      string
	VectorField string
	Dimensions  int
	Distance    DistanceMetric
	HNSW        *HNSWParams
	Numeric     []string
}

// Validate reports a malformed definition before it reaches the server.
func (ix *VectorIndex) Validate() error {
	switch {
	case ix == nil:
		return errors.New("index definition is required")
	case !isIdentifier(ix.Name):
		return fmt.Errorf("invalid index name %q", ix.Name)
	case ix.Prefix == "":
		return errors.New("index prefix is required")
	case ix.VectorField == "":
		return errors.New("vector field is required")
	case ix.Dimensions <= 0:
		return fmt.Errorf("vector dimensions must be positive, got %d", ix.Dimensions)
	}
	for _, f := range ix.Numeric {
		if f == "" || f == ix.VectorField || f == VectorAlias {
			return fmt.Errorf("invalid numeric field %q", f)
		}
	}
	return nil
}

// CreateArgs returns the FT.CREATE arguments, index name first.
func (ix *VectorIndex) CreateArgs() []string {
	distance := ix.Distance
	if distance == "" {
		distance = DistanceCosine
	}

	args := []string{ix.Name, "ON", "HASH", "PREFIX", "1", ix.Prefix, "SCHEMA"}
	for _, f := range ix.Numeric {
		args = append(args, f, "NUMERIC")
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(ix.Dimensions),
		"DISTANCE_METRIC", string(distance),
	}
	algo := "FLAT"
	if ix.HNSW != nil {
		algo = "HNSW"
		if ix.HNSW.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(ix.HNSW.M))
		}
		if ix.HNSW.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(ix.HNSW.EFConstruction))
		}
	}

	args = append(args, ix.VectorField, "AS", VectorAlias, "VECTOR", algo, strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}

// isIdentifier accepts key-like names: letters, digits, '_', ':' and '-'.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
