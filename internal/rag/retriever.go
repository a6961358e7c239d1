package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks docsync-ai/internal/rag Retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/embedding"
	"docsync-ai/internal/index"
)

const (
	// DefaultK is the number of chunks returned when k is not set.
	DefaultK = 5
	// MaxK caps k.
	MaxK = 20
)

// Retriever answers similarity queries against a folder's index.
type Retriever interface {
	// Retrieve returns the top k chunks for query. It fails with
	// apperr.ErrNotReady before the folder's initial sync and with
	// apperr.ErrProvider when the query cannot be embedded.
	Retrieve(ctx context.Context, folderID int64, query string, k int) (RetrievalResult, error)
}

// IndexResolver returns the query embedder and index of a folder that is
// ready for retrieval.
type IndexResolver interface {
	Resolve(ctx context.Context, folderID int64) (embedding.Embedder, index.Searcher, error)
}

type retriever struct {
	resolver IndexResolver
}

// NewRetriever creates a Retriever over the folders known to resolver.
func NewRetriever(resolver IndexResolver) Retriever {
	return &retriever{resolver: resolver}
}

// ClampK applies the default and the maximum to a requested k.
func ClampK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

func (r *retriever) Retrieve(ctx context.Context, folderID int64, query string, k int) (RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return RetrievalResult{}, &apperr.ValidationError{Field: "query", Message: "is required"}
	}
	k = ClampK(k)

	embedder, searcher, err := r.resolver.Resolve(ctx, folderID)
	if err != nil {
		return RetrievalResult{}, err
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "folder_id", folderID, "error", err)
		if ctx.Err() != nil || errors.Is(err, apperr.ErrProvider) || errors.Is(err, apperr.ErrConfig) {
			return RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
		}
		return RetrievalResult{}, fmt.Errorf("%w: failed to embed query: %v", apperr.ErrProvider, err)
	}
	if len(vectors) != 1 {
		return RetrievalResult{}, fmt.Errorf("%w: expected 1 query embedding, got %d", apperr.ErrProvider, len(vectors))
	}

	hits, err := searcher.Search(ctx, vectors[0], k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search index", "folder_id", folderID, "error", err)
		return RetrievalResult{}, fmt.Errorf("failed to search index: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	result := RetrievalResult{FolderID: folderID, Query: query, K: k, Chunks: make([]RetrievedChunk, 0, len(hits))}
	for i, h := range hits {
		result.Chunks = append(result.Chunks, RetrievedChunk{
			ChunkID: h.ChunkID,
			RelPath: h.RelPath,
			Ordinal: h.Ordinal,
			Text:    h.Text,
			Score:   h.Score,
			Rank:    i + 1,
		})
	}

	logger.InfoContext(ctx, "retrieval completed", "folder_id", folderID, "k", k, "results", len(result.Chunks))
	return result, nil
}
