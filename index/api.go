package index

import (
	"fmt"
	"strings"
)

// Metric names the similarity function used to rank neighbours.
type Metric string

const (
	// Cosine ranks by cosine similarity.
	Cosine Metric = "cosine"
	// Euclidean ranks by ascending L2 distance.
	Euclidean Metric = "euclidean"
	// Dot ranks by inner product.
	Dot Metric = "dot"
)

// ParseMetric resolves a metric name. Empty input yields Cosine.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cos", "cosine":
		return Cosine, nil
	case "l2", "euclid", "euclidean":
		return Euclidean, nil
	case "dot", "ip", "inner_product":
		return Dot, nil
	}
	return "", fmt.Errorf("index: unsupported metric %q", name)
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case Cosine, Euclidean, Dot:
		return true
	}
	return false
}

// Index defines a generic vector index with basic lifecycle methods.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and a single dimension.
	Build(ids []string, vectors [][]float32) error

	// Query runs a kNN search and returns up to k matches as parallel slices
	// of ids and scores ordered from most to least similar. A higher score
	// always means more similar; k <= 0 returns no matches.
	Query(query []float32, k int) (ids []string, scores []float64, err error)

	// Len returns the number of indexed vectors.
	Len() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}
