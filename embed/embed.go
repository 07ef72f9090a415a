// Package embed provides embedding functions that turn text into vectors.
//
// The same Func must be used when ingesting documents and when embedding a
// query; otherwise similarity scores are meaningless.
package embed

import (
	"context"
	"math"
)

// Func converts free-form text into an embedding.
//
// Implementations can call any provider (a local model, an HTTP service, a
// deterministic hash) as long as they return float32 values of a fixed
// dimension.
type Func func(ctx context.Context, text string) ([]float32, error)

// Normalize scales vec to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	mag := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / mag)
	}
	return vec
}
