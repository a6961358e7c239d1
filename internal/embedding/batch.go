package embedding

import (
	"context"
	"errors"
	"fmt"

	"docsync-ai/internal/apperr"
)

// BatchResult is the outcome of embedding many texts. Vectors[i] is nil
// exactly when Failed has an entry for i.
type BatchResult struct {
	Vectors [][]float32
	Failed  map[int]error
	Calls   int // Provider calls issued, including retries
}

// BatchEmbedder splits work into provider-sized batches. A batch that still
// fails after its retries is retried item by item, so one bad text only
// fails itself.
type BatchEmbedder struct {
	inner Embedder
	size  int
	retry RetryConfig
}

// NewBatchEmbedder wraps inner. size is the maximum texts per call.
func NewBatchEmbedder(inner Embedder, size int, retry RetryConfig) *BatchEmbedder {
	if size <= 0 {
		size = 32
	}
	return &BatchEmbedder{inner: inner, size: size, retry: retry}
}

// EmbedAll embeds texts. The returned error is non-nil only when the whole
// operation must stop: the context ended or the provider returned vectors
// of the wrong dimensionality (apperr.ErrConfig).
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) (BatchResult, error) {
	res := BatchResult{Vectors: make([][]float32, len(texts)), Failed: make(map[int]error)}

	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		batch := texts[start:end]

		vectors, err := b.call(ctx, &res, batch)
		if err == nil {
			copy(res.Vectors[start:end], vectors)
			continue
		}
		if fatal(ctx, err) {
			return res, err
		}
		if len(batch) == 1 {
			res.Failed[start] = err
			continue
		}

		for i, text := range batch {
			vectors, err := b.call(ctx, &res, []string{text})
			if err != nil {
				if fatal(ctx, err) {
					return res, err
				}
				res.Failed[start+i] = err
				continue
			}
			res.Vectors[start+i] = vectors[0]
		}
	}
	return res, nil
}

func (b *BatchEmbedder) call(ctx context.Context, res *BatchResult, texts []string) ([][]float32, error) {
	return Retry(ctx, b.retry, func() ([][]float32, error) {
		res.Calls++
		vectors, err := b.inner.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", apperr.ErrProvider, len(texts), len(vectors))
		}
		if err := checkDimensions(vectors, b.inner.Dimensions()); err != nil {
			return nil, err
		}
		return vectors, nil
	})
}

func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, apperr.ErrConfig)
}

// Embed implements Embedder. Any failed item fails the call.
func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := b.EmbedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range texts {
		if err, ok := res.Failed[i]; ok {
			return nil, err
		}
	}
	return res.Vectors, nil
}

// Dimensions returns the embedding vector size.
func (b *BatchEmbedder) Dimensions() int { return b.inner.Dimensions() }

// ModelName returns the embedding model.
func (b *BatchEmbedder) ModelName() string { return b.inner.ModelName() }
