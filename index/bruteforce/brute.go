package bruteforce

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/sqlite-kb/index"
)

// Index is a brute-force vector index scoring every vector on each query.
type Index struct {
	metric index.Metric
	ids    []string
	vecs   [][]float32
	dim    int
	mags   []float64
}

// New creates an empty index ranking by metric; an invalid metric falls
// back to cosine.
func New(metric index.Metric) *Index {
	if !metric.Valid() {
		metric = index.Cosine
	}
	return &Index{metric: metric}
}

// Metric returns the ranking metric.
func (i *Index) Metric() index.Metric {
	if i.metric == "" {
		return index.Cosine
	}
	return i.metric
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Build loads ids and vectors and precomputes magnitudes.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.mags, i.dim = nil, nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	mags := make([]float64, len(vectors))
	for j := range vectors {
		mags[j] = magnitude(vectors[j])
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = mags
	return nil
}

// Query returns the top-k ids by the index metric; ties keep build order.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if k <= 0 || i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	metric := i.Metric()
	qm := magnitude(query)
	type scored struct {
		idx   int
		score float64
	}
	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		var s float64
		switch metric {
		case index.Euclidean:
			s = -l2(query, i.vecs[j])
		case index.Dot:
			s = dot(query, i.vecs[j])
		default:
			// a zero vector has no direction and scores 0 against anything
			if qm != 0 && i.mags[j] != 0 {
				s = dot(query, i.vecs[j]) / (qm * i.mags[j])
			}
		}
		if math.IsNaN(s) {
			continue
		}
		scoreds = append(scoreds, scored{idx: j, score: s})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].score > scoreds[b].score })
	if k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]string, k)
	outScores := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outScores[n] = scoreds[n].score
	}
	return outIDs, outScores, nil
}

// MarshalBinary serializes ids and vectors with the shared index codec.
func (i *Index) MarshalBinary() ([]byte, error) {
	return index.Encode(i.ids, i.vecs)
}

// UnmarshalBinary restores the index from bytes, keeping the metric.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := index.Decode(data)
	if err != nil {
		return err
	}
	return i.Build(ids, vecs)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }

func l2(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return math.Sqrt(s)
}

var _ index.Index = (*Index)(nil)
