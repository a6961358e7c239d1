// Package index maintains one folder's chunk index: chunk metadata in
// SQLite and vectors in a VectorStore collection, addressed by the same
// deterministic chunk IDs.
package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/vectorstore"
)

// chunkNamespace scopes chunk IDs generated by this package.
var chunkNamespace = uuid.MustParse("6f1d2c3a-7b4e-5d8f-9a0b-1c2d3e4f5a6b")

// ChunkID returns the deterministic ID of a chunk. The same folder, path
// and ordinal always produce the same ID.
func ChunkID(folderID int64, relPath string, ordinal int) string {
	name := strconv.FormatInt(folderID, 10) + "\x00" + relPath + "\x00" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// CollectionName returns the vector store collection of a folder.
func CollectionName(folderID int64) string {
	return fmt.Sprintf("folder_%d", folderID)
}

// Entry is a chunk ready to be indexed.
type Entry struct {
	RelPath     string
	Ordinal     int
	Text        string
	ContentHash string
	Vector      []float32
}

// Searcher runs similarity queries against one folder's index.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
}

// Hit is a search result.
type Hit struct {
	ChunkID string
	RelPath string
	Ordinal int
	Text    string
	Score   float32
}

// Index is the chunk index of one folder.
type Index struct {
	folderID   int64
	collection string
	dims       int
	chunks     storage.ChunkStore
	vectors    vectorstore.VectorStore
}

// Open returns the index of folderID, creating its collection if needed.
// An existing collection of another vector size fails with apperr.ErrConfig.
func Open(ctx context.Context, folderID int64, dims int, chunks storage.ChunkStore, vectors vectorstore.VectorStore) (*Index, error) {
	ix := &Index{
		folderID:   folderID,
		collection: CollectionName(folderID),
		dims:       dims,
		chunks:     chunks,
		vectors:    vectors,
	}
	if err := vectors.EnsureCollection(ctx, ix.collection, dims); err != nil {
		return nil, fmt.Errorf("failed to open index for folder %d: %w", folderID, err)
	}
	return ix, nil
}

// Dimensions returns the vector size of the index.
func (ix *Index) Dimensions() int {
	return ix.dims
}

// Upsert writes entries, replacing chunks with the same path and ordinal.
// Vectors are written before metadata, so a failure in between leaves at
// worst vectors that the next upsert of the same file overwrites.
func (ix *Index) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]vectorstore.Point, 0, len(entries))
	records := make([]storage.ChunkRecord, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) != ix.dims {
			return fmt.Errorf("%w: chunk %s#%d has %d dimensions, index has %d", apperr.ErrConfig, e.RelPath, e.Ordinal, len(e.Vector), ix.dims)
		}
		id := ChunkID(ix.folderID, e.RelPath, e.Ordinal)
		points = append(points, vectorstore.Point{
			ID:   id,
			Vec:  e.Vector,
			Meta: map[string]string{"rel_path": e.RelPath, "ordinal": strconv.Itoa(e.Ordinal)},
		})
		records = append(records, storage.ChunkRecord{
			ID:          id,
			FolderID:    ix.folderID,
			RelPath:     e.RelPath,
			Ordinal:     e.Ordinal,
			ContentHash: e.ContentHash,
			Text:        e.Text,
			Vector:      e.Vector,
		})
	}

	if err := ix.vectors.Upsert(ctx, ix.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	if err := ix.chunks.UpsertBatch(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert chunk metadata: %w", err)
	}
	return nil
}

// Existing returns the indexed chunks of relPath keyed by ordinal.
func (ix *Index) Existing(ctx context.Context, relPath string) (map[int]storage.ChunkRecord, error) {
	chunks, err := ix.chunks.ListByFile(ctx, ix.folderID, relPath)
	if err != nil {
		return nil, err
	}
	out := make(map[int]storage.ChunkRecord, len(chunks))
	for _, c := range chunks {
		out[c.Ordinal] = c
	}
	return out, nil
}

// DeleteChunks removes chunks by ID from both stores.
func (ix *Index) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ix.vectors.Delete(ctx, ix.collection, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := ix.chunks.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete chunk metadata: %w", err)
	}
	return nil
}

// DeleteBySource removes every chunk of relPath and returns how many there were.
func (ix *Index) DeleteBySource(ctx context.Context, relPath string) (int, error) {
	chunks, err := ix.chunks.ListByFile(ctx, ix.folderID, relPath)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := ix.DeleteChunks(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Search returns up to k chunks ordered by score descending, ties broken
// by chunk ID. Vector hits whose metadata is gone (a concurrent delete)
// are skipped.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", apperr.ErrConfig, len(query), ix.dims)
	}

	results, err := ix.vectors.Search(ctx, ix.collection, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.PointID
	}
	records, err := ix.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		c, ok := records[r.PointID]
		if !ok {
			logger.DebugContext(ctx, "skipping vector without chunk metadata", "chunk_id", r.PointID)
			continue
		}
		hits = append(hits, Hit{
			ChunkID: c.ID,
			RelPath: c.RelPath,
			Ordinal: c.Ordinal,
			Text:    c.Text,
			Score:   r.Score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits, nil
}

// Count returns the number of indexed chunks per source path.
func (ix *Index) Count(ctx context.Context) (map[string]int, error) {
	return ix.chunks.SourceCounts(ctx, ix.folderID)
}

// VectorCount returns the number of vectors in the folder's collection.
func (ix *Index) VectorCount(ctx context.Context) (int, error) {
	return ix.vectors.Count(ctx, ix.collection)
}

// Flush makes prior mutations durable.
func (ix *Index) Flush(ctx context.Context) error {
	if err := ix.vectors.Flush(ctx, ix.collection); err != nil {
		return fmt.Errorf("failed to flush index: %w", err)
	}
	return nil
}

// Repair is the outcome of Reconcile.
type Repair struct {
	Restored int      // vectors rewritten from their chunk rows
	Dropped  []string // sources whose rows held no usable vector, sorted
}

// Reconcile makes the collection hold a vector for every chunk row. Chunk
// rows are committed as soon as they are upserted while vectors may only
// become durable at Flush, so a crash in between leaves rows without
// vectors. Missing vectors are rewritten from the rows; rows that cannot
// supply one are deleted and their sources reported so they are indexed
// again.
func (ix *Index) Reconcile(ctx context.Context) (Repair, error) {
	var repair Repair

	rows, err := ix.chunks.ListByFolder(ctx, ix.folderID)
	if err != nil || len(rows) == 0 {
		return repair, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	present, err := ix.vectors.Contains(ctx, ix.collection, ids)
	if err != nil {
		return repair, fmt.Errorf("failed to check vectors: %w", err)
	}

	var points []vectorstore.Point
	var orphans []string
	dropped := make(map[string]bool)
	for _, r := range rows {
		if present[r.ID] {
			continue
		}
		if len(r.Vector) != ix.dims {
			orphans = append(orphans, r.ID)
			dropped[r.RelPath] = true
			continue
		}
		points = append(points, vectorstore.Point{
			ID:   r.ID,
			Vec:  r.Vector,
			Meta: map[string]string{"rel_path": r.RelPath, "ordinal": strconv.Itoa(r.Ordinal)},
		})
	}
	if len(points) == 0 && len(orphans) == 0 {
		return repair, nil
	}

	if err := ix.vectors.Upsert(ctx, ix.collection, points); err != nil {
		return repair, fmt.Errorf("failed to restore vectors: %w", err)
	}
	if err := ix.DeleteChunks(ctx, orphans); err != nil {
		return repair, err
	}
	if err := ix.Flush(ctx); err != nil {
		return repair, err
	}

	repair.Restored = len(points)
	for p := range dropped {
		repair.Dropped = append(repair.Dropped, p)
	}
	sort.Strings(repair.Dropped)
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "reconciled index",
		"collection", ix.collection, "restored", repair.Restored, "dropped_sources", len(repair.Dropped))
	return repair, nil
}

// Drop removes the folder's collection and chunk metadata.
func (ix *Index) Drop(ctx context.Context) error {
	return Drop(ctx, ix.folderID, ix.chunks, ix.vectors)
}

// Drop removes a folder's index without opening it, which works even when
// the collection's vector size no longer matches the provider.
func Drop(ctx context.Context, folderID int64, chunks storage.ChunkStore, vectors vectorstore.VectorStore) error {
	if err := vectors.DropCollection(ctx, CollectionName(folderID)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := chunks.DeleteByFolder(ctx, folderID); err != nil {
		return err
	}
	return nil
}
