package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// NewHashing returns a deterministic bag-of-words embedder. Each lower-cased
// token is hashed into one of dim buckets with a hash-derived sign and the
// result is normalised to unit length. Texts sharing more tokens score
// higher under cosine similarity.
func NewHashing(dim int) (Func, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embed: hashing dimension must be positive, got %d", dim)
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float32, dim)
		for _, token := range tokenize(text) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			sum := h.Sum32()
			bucket := int(sum % uint32(dim))
			if sum&(1<<31) != 0 {
				vec[bucket]--
			} else {
				vec[bucket]++
			}
		}
		return Normalize(vec), nil
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
