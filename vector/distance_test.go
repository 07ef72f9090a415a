package vector

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{1, 0}

	// Orthogonal vectors -> similarity 0
	if sim, err := CosineSimilarity(a, b); err != nil || sim != 0 {
		t.Fatalf("CosineSimilarity(a,b) = %v, %v; want 0, nil", sim, err)
	}

	// Identical vectors -> similarity 1
	if sim, err := CosineSimilarity(a, c); err != nil || sim != 1 {
		t.Fatalf("CosineSimilarity(a,c) = %v, %v; want 1, nil", sim, err)
	}

	if _, err := CosineSimilarity([]float32{0, 0}, a); err == nil {
		t.Fatalf("expected zero-magnitude error")
	}
}

func TestL2Distance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}

	d, err := L2Distance(a, b)
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if math.Abs(d-5) > 1e-6 {
		t.Fatalf("L2Distance(0,0)-(3,4) = %v, want 5", d)
	}
	if _, err := L2Distance(a, []float32{1}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestSimilarity(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{3, 4}
	if s, err := Similarity(Dot, a, b); err != nil || s != 11 {
		t.Fatalf("Similarity(dot) = %v, %v; want 11, nil", s, err)
	}
	if s, err := Similarity(Euclidean, []float32{0, 0}, b); err != nil || math.Abs(s+5) > 1e-6 {
		t.Fatalf("Similarity(euclidean) = %v, %v; want -5, nil", s, err)
	}
	if _, err := Similarity("manhattan", a, b); !errors.Is(err, ErrUnsupportedMetric) {
		t.Fatalf("expected ErrUnsupportedMetric, got %v", err)
	}
	if m := Magnitude(b); math.Abs(m-5) > 1e-6 {
		t.Fatalf("Magnitude = %v, want 5", m)
	}
}
