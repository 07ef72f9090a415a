package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises fn by text, keeping at most size entries (least recently
// used first out). Returned slices are copies, so callers may modify them.
func Cached(fn Func, size int) (Func, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		if vec, ok := cache.Get(text); ok {
			return append([]float32(nil), vec...), nil
		}
		vec, err := fn(ctx, text)
		if err != nil {
			return nil, err
		}
		cache.Add(text, append([]float32(nil), vec...))
		return vec, nil
	}, nil
}
