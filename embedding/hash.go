package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/flarexio/docstore/vector"
)

// NewHashEmbedder returns a deterministic, offline embedder. Every token
// is hashed into one of dimension buckets and the resulting counts are
// L2-normalised, so texts sharing words score as similar.
func NewHashEmbedder(dimension int) vector.Embedder {
	if dimension <= 0 {
		dimension = vector.DefaultDimension
	}

	return &hashEmbedder{dimension}
}

type hashEmbedder struct {
	dimension int
}

func (e *hashEmbedder) Dimension() int {
	return e.dimension
}

func (e *hashEmbedder) Embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dimension))
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		// no tokens; keep the vector non-zero so cosine metrics stay defined
		vec[0] = 1
		return vec, nil
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}
