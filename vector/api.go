package vector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/index"
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("vector: collection not found")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// collection dimension.
	ErrDimensionMismatch = errors.New("vector: embedding dimension mismatch")

	// ErrUnsupportedMetric is returned for an unknown distance metric.
	ErrUnsupportedMetric = errors.New("vector: unsupported metric")
)

// Metric is the distance metric configured on a collection.
type Metric = index.Metric

const (
	Cosine    = index.Cosine
	Euclidean = index.Euclidean
	Dot       = index.Dot
)

// CollectionInfo describes a vector collection.
type CollectionInfo struct {
	Name      string `json:"name" yaml:"name"`
	Dimension int    `json:"dimension" yaml:"dimension"`
	Metric    Metric `json:"metric" yaml:"metric"`
}

// CollectionSpec holds collection creation parameters.
type CollectionSpec struct {
	Name      string
	Dimension int
	// Metric defaults to Cosine when empty.
	Metric Metric
	// Recreate drops existing vectors and metadata when the collection exists.
	Recreate bool
	// WarnOnExists logs a warning when the collection exists and Recreate is false.
	WarnOnExists bool
}

// Validate checks the spec and normalises its metric.
func (s *CollectionSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("vector: collection name is required")
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("vector: collection %s: dimension must be positive, got %d", s.Name, s.Dimension)
	}
	metric, err := index.ParseMetric(string(s.Metric))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedMetric, s.Metric)
	}
	s.Metric = metric
	return nil
}

// Match is a single similarity search hit; a higher Score is more similar.
type Match struct {
	ID    document.ID
	Score float64
}

// IndexKind selects how a Store answers kNN queries.
type IndexKind string

const (
	// IndexAuto picks IndexVPTree for large, dense collections, IndexBrute otherwise.
	IndexAuto IndexKind = "auto"
	// IndexBrute scans every vector in memory.
	IndexBrute IndexKind = "brute"
	// IndexVPTree uses a vantage-point tree (cosine and euclidean only).
	IndexVPTree IndexKind = "vptree"
	// IndexSQL ranks rows in SQLite with the engine scalar functions.
	IndexSQL IndexKind = "sql"
)

// ParseIndexKind resolves an index kind name; empty input yields IndexAuto.
func ParseIndexKind(name string) (IndexKind, error) {
	switch kind := IndexKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case "":
		return IndexAuto, nil
	case IndexAuto, IndexBrute, IndexVPTree, IndexSQL:
		return kind, nil
	case "cover":
		return IndexVPTree, nil
	}
	return "", fmt.Errorf("vector: unsupported index kind %q", name)
}
