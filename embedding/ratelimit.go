package embedding

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/flarexio/docstore/vector"
)

// RateLimited delays calls to next so that at most rps embeddings are
// requested per second. A waiting call gives up when its context ends.
func RateLimited(next vector.Embedder, rps float64) vector.Embedder {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}

	return &rateLimitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type rateLimitedEmbedder struct {
	next    vector.Embedder
	limiter *rate.Limiter
}

func (e *rateLimitedEmbedder) Dimension() int {
	return e.next.Dimension()
}

func (e *rateLimitedEmbedder) Embed(ctx context.Context, text string, mode vector.EmbeddingMode) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return e.next.Embed(ctx, text, mode)
}
