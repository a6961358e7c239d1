package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks docsync-ai/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]string
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]string
}

// VectorStore defines the interface for vector storage operations. Each
// watched folder owns one collection.
type VectorStore interface {
	// EnsureCollection creates the collection if needed. An existing
	// collection with a different vector size fails with apperr.ErrConfig.
	EnsureCollection(ctx context.Context, collection string, dims int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k points closest to query, best first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error

	// Contains reports which of ids are live points in the collection. A
	// missing collection contains nothing.
	Contains(ctx context.Context, collection string, ids []string) (map[string]bool, error)

	// Count returns the number of live points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// DropCollection removes the collection and its storage.
	DropCollection(ctx context.Context, collection string) error

	// Flush makes all prior mutations of the collection durable.
	Flush(ctx context.Context, collection string) error

	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
}
