package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is the default request rate for hosted providers.
const DefaultRequestsPerSecond = 5.0

// RateLimited throttles calls to an embedder with a token bucket.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner so that at most rps calls per second are made.
func NewRateLimited(inner Embedder, rps float64, burst int) *RateLimited {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for a token, then delegates.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// Dimensions returns the embedding vector size.
func (r *RateLimited) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the embedding model.
func (r *RateLimited) ModelName() string { return r.inner.ModelName() }
