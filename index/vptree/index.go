// Package vptree implements an exact kNN index on a vantage-point tree.
// Cosine similarity is answered through euclidean distance between unit
// vectors, which preserves the ranking and keeps the triangle inequality
// needed for pruning. Zero vectors stay outside the tree and score 0, the
// unit-sphere distance sqrt(2). The dot metric is not supported.
package vptree

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/viant/sqlite-kb/index"
)

// Index is a VP-tree over the indexed vectors.
type Index struct {
	metric index.Metric
	ids    []string
	vecs   [][]float32
	points [][]float64
	zeros  []int
	dim    int
	root   *node
}

type node struct {
	idx   int
	thr   float64
	left  *node
	right *node
}

// New creates an empty index for metric (cosine or euclidean).
func New(metric index.Metric) *Index {
	if metric == "" {
		metric = index.Cosine
	}
	return &Index{metric: metric}
}

// Supports reports whether the tree can answer queries under metric.
func Supports(metric index.Metric) bool {
	return metric == index.Cosine || metric == index.Euclidean
}

// Metric returns the ranking metric.
func (i *Index) Metric() index.Metric { return i.metric }

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Build constructs the tree; under cosine, vectors with zero magnitude are
// kept aside and ranked with score 0.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if !Supports(i.metric) {
		return fmt.Errorf("vptree: metric %s is not supported", i.metric)
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("vptree: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.points = make([][]float64, len(vectors))
	i.zeros = nil
	i.root = nil
	if len(vectors) == 0 {
		i.dim = 0
		return nil
	}
	i.dim = len(vectors[0])
	idxs := make([]int, 0, len(vectors))
	for j, v := range vectors {
		if len(v) != i.dim {
			return fmt.Errorf("vptree: inconsistent vector dims %d vs %d", len(v), i.dim)
		}
		p, ok := i.point(v)
		if !ok {
			i.zeros = append(i.zeros, j)
			continue
		}
		i.points[j] = p
		idxs = append(idxs, j)
	}
	i.root = i.build(idxs)
	return nil
}

func (i *Index) point(v []float32) ([]float64, bool) {
	mag := 1.0
	if i.metric == index.Cosine {
		if mag = math.Sqrt(dot(v, v)); mag == 0 {
			return nil, false
		}
	}
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = float64(x) / mag
	}
	return out, true
}

func (i *Index) build(idxs []int) *node {
	if len(idxs) == 0 {
		return nil
	}
	// last element is the vantage point; keeps builds deterministic
	vp := idxs[len(idxs)-1]
	rest := idxs[:len(idxs)-1]
	if len(rest) == 0 {
		return &node{idx: vp}
	}
	dists := make(map[int]float64, len(rest))
	order := append([]int(nil), rest...)
	for _, j := range order {
		dists[j] = l2(i.points[vp], i.points[j])
	}
	sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	mid := len(order) / 2
	return &node{
		idx:   vp,
		thr:   dists[order[mid]],
		left:  i.build(order[:mid+1]),
		right: i.build(order[mid+1:]),
	}
}

// Query returns up to k ids ordered by decreasing similarity; ties keep
// build order.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if k <= 0 || len(i.ids) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("vptree: query dim %d != index dim %d", len(query), i.dim)
	}
	if k > len(i.ids) {
		k = len(i.ids)
	}
	q, ok := i.point(query)
	if !ok {
		// zero query: every vector scores 0
		return append([]string(nil), i.ids[:k]...), make([]float64, k), nil
	}
	h := &candidates{}
	tau := math.Inf(1)
	offer := func(c candidate) {
		if h.Len() < k {
			heap.Push(h, c)
		} else if c.before((*h)[0]) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
		if h.Len() == k {
			tau = (*h)[0].dist
		}
	}
	var visit func(n *node)
	visit = func(n *node) {
		if n == nil {
			return
		}
		d := l2(q, i.points[n.idx])
		offer(candidate{idx: n.idx, dist: d})
		if d < n.thr {
			if d-tau <= n.thr {
				visit(n.left)
			}
			if d+tau >= n.thr {
				visit(n.right)
			}
			return
		}
		if d+tau >= n.thr {
			visit(n.right)
		}
		if d-tau <= n.thr {
			visit(n.left)
		}
	}
	visit(i.root)
	for _, j := range i.zeros {
		offer(candidate{idx: j, dist: math.Sqrt2})
	}

	found := []candidate(*h)
	sort.Slice(found, func(a, b int) bool { return found[a].before(found[b]) })
	ids := make([]string, len(found))
	scores := make([]float64, len(found))
	for n, c := range found {
		ids[n] = i.ids[c.idx]
		scores[n] = i.score(c)
	}
	return ids, scores, nil
}

func (i *Index) score(c candidate) float64 {
	if i.metric == index.Cosine {
		if i.points[c.idx] == nil {
			return 0
		}
		return 1 - c.dist*c.dist/2
	}
	return -c.dist
}

// MarshalBinary serializes the original vectors with the shared codec; the
// tree is rebuilt on load.
func (i *Index) MarshalBinary() ([]byte, error) {
	return index.Encode(i.ids, i.vecs)
}

// UnmarshalBinary restores the vectors and rebuilds the tree.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := index.Decode(data)
	if err != nil {
		return err
	}
	return i.Build(ids, vecs)
}

type candidate struct {
	idx  int
	dist float64
}

// before orders candidates by distance, then by build position.
func (c candidate) before(o candidate) bool {
	if c.dist == o.dist {
		return c.idx < o.idx
	}
	return c.dist < o.dist
}

// candidates is a max-heap on (dist, idx).
type candidates []candidate

func (c candidates) Len() int            { return len(c) }
func (c candidates) Less(a, b int) bool  { return c[b].before(c[a]) }
func (c candidates) Swap(a, b int)       { c[a], c[b] = c[b], c[a] }
func (c *candidates) Push(x interface{}) { *c = append(*c, x.(candidate)) }
func (c *candidates) Pop() interface{} {
	old := *c
	n := len(old)
	item := old[n-1]
	*c = old[:n-1]
	return item
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func l2(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

var _ index.Index = (*Index)(nil)
