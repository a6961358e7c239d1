package llm

import (
	"context"

	"docsync-ai/internal/embedding"
)

// retryingGenerator retries transient provider failures of inner.
type retryingGenerator struct {
	inner Generator
	retry embedding.RetryConfig
}

// WithRetry wraps g so that failed completions are retried under cfg.
// Cancellation and permanent provider statuses are not retried.
func WithRetry(g Generator, cfg embedding.RetryConfig) Generator {
	return &retryingGenerator{inner: g, retry: cfg}
}

func (r *retryingGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return embedding.Retry(ctx, r.retry, func() (string, error) {
		return r.inner.Complete(ctx, prompt)
	})
}
