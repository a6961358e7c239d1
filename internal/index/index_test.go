package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/vectorstore"
	"docsync-ai/internal/vectorstore/mocks"
)

type fixture struct {
	folderID int64
	chunks   *storage.ChunkRepo
	vectors  *vectorstore.HNSWStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	folder, err := storage.NewFolderRepo(db).GetOrCreateByName(context.Background(), "docs", dir, "local", filepath.Join(dir, "index"))
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}

	vectors, err := vectorstore.NewHNSWStore(filepath.Join(dir, "index"))
	if err != nil {
		t.Fatalf("NewHNSWStore() error = %v", err)
	}
	t.Cleanup(func() { _ = vectors.Close() })

	return fixture{folderID: folder.ID, chunks: storage.NewChunkRepo(db), vectors: vectors}
}

func (f fixture) open(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(context.Background(), f.folderID, 3, f.chunks, f.vectors)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return ix
}

func entry(path string, ordinal int, text string, vec ...float32) Entry {
	return Entry{RelPath: path, Ordinal: ordinal, Text: text, ContentHash: "h-" + text, Vector: vec}
}

func TestChunkID(t *testing.T) {
	a := ChunkID(1, "a.txt", 0)
	if a != ChunkID(1, "a.txt", 0) {
		t.Error("ChunkID() is not deterministic")
	}
	for _, other := range []string{ChunkID(2, "a.txt", 0), ChunkID(1, "b.txt", 0), ChunkID(1, "a.txt", 1)} {
		if other == a {
			t.Errorf("ChunkID() collision: %s", other)
		}
	}
	if len(a) != 36 {
		t.Errorf("ChunkID() = %q, want a UUID", a)
	}
}

func TestIndex_UpsertExistingSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ix := f.open(t)

	err := ix.Upsert(ctx, []Entry{
		entry("a.txt", 0, "alpha", 1, 0, 0),
		entry("a.txt", 1, "beta", 0, 1, 0),
		entry("b.txt", 0, "gamma", 0, 0, 1),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	existing, err := ix.Existing(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Existing() error = %v", err)
	}
	if len(existing) != 2 || existing[1].Text != "beta" || existing[1].ID != ChunkID(f.folderID, "a.txt", 1) {
		t.Errorf("Existing() = %+v", existing)
	}

	hits, err := ix.Search(ctx, []float32{0, 0.9, 0.1}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].Text != "beta" || hits[1].Text != "gamma" {
		t.Errorf("Search() = %+v, want beta then gamma", hits)
	}
	if hits[0].RelPath != "a.txt" || hits[0].Ordinal != 1 {
		t.Errorf("Search() top hit source = %s#%d", hits[0].RelPath, hits[0].Ordinal)
	}

	counts, _ := ix.Count(ctx)
	if counts["a.txt"] != 2 || counts["b.txt"] != 1 {
		t.Errorf("Count() = %v", counts)
	}
	if n, _ := ix.VectorCount(ctx); n != 3 {
		t.Errorf("VectorCount() = %d, want 3", n)
	}
}

func TestIndex_DeleteBySource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ix := f.open(t)

	_ = ix.Upsert(ctx, []Entry{
		entry("a.txt", 0, "alpha", 1, 0, 0),
		entry("a.txt", 1, "beta", 0, 1, 0),
		entry("b.txt", 0, "gamma", 0, 0, 1),
	})

	n, err := ix.DeleteBySource(ctx, "a.txt")
	if err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteBySource() = %d, want 2", n)
	}

	counts, _ := ix.Count(ctx)
	if len(counts) != 1 || counts["b.txt"] != 1 {
		t.Errorf("Count() after delete = %v, want only b.txt", counts)
	}
	if n, _ := ix.VectorCount(ctx); n != 1 {
		t.Errorf("VectorCount() after delete = %d, want 1", n)
	}

	if n, err := ix.DeleteBySource(ctx, "missing.txt"); err != nil || n != 0 {
		t.Errorf("DeleteBySource(missing) = %d, %v", n, err)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ix := f.open(t)

	if err := ix.Upsert(ctx, []Entry{entry("a.txt", 0, "x", 1, 0)}); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("Upsert() error = %v, want ErrConfig", err)
	}
	if _, err := ix.Search(ctx, []float32{1}, 1); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("Search() error = %v, want ErrConfig", err)
	}
	if _, err := Open(ctx, f.folderID, 5, f.chunks, f.vectors); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("Open() with other dims error = %v, want ErrConfig", err)
	}
}

func TestIndex_Drop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ix := f.open(t)
	_ = ix.Upsert(ctx, []Entry{entry("a.txt", 0, "alpha", 1, 0, 0)})
	_ = ix.Flush(ctx)

	if err := ix.Drop(ctx); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	counts, _ := ix.Count(ctx)
	if len(counts) != 0 {
		t.Errorf("Count() after drop = %v", counts)
	}

	// A dropped index can be reopened with another size.
	if _, err := Open(ctx, f.folderID, 5, f.chunks, f.vectors); err != nil {
		t.Errorf("Open() after drop error = %v", err)
	}
}

func TestIndex_SearchTiesAndStaleHits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockVectorStore(ctrl)

	mock.EXPECT().EnsureCollection(gomock.Any(), CollectionName(f.folderID), 3).Return(nil)
	mock.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	ix, err := Open(ctx, f.folderID, 3, f.chunks, mock)
	if err != nil {
		t.Fatal(err)
	}
	_ = ix.Upsert(ctx, []Entry{
		entry("a.txt", 0, "first", 1, 0, 0),
		entry("b.txt", 0, "second", 1, 0, 0),
	})

	idA := ChunkID(f.folderID, "a.txt", 0)
	idB := ChunkID(f.folderID, "b.txt", 0)
	mock.EXPECT().Search(gomock.Any(), CollectionName(f.folderID), gomock.Any(), 3).Return([]vectorstore.SearchResult{
		{PointID: "stale", Score: 0.99},
		{PointID: max(idA, idB), Score: 0.5},
		{PointID: min(idA, idB), Score: 0.5},
	}, nil)

	hits, err := ix.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].ChunkID != min(idA, idB) {
		t.Errorf("Search() tie order = %s,%s; want ascending chunk id", hits[0].ChunkID, hits[1].ChunkID)
	}
}

func TestOpen_PropagatesStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockVectorStore(ctrl)
	mock.EXPECT().EnsureCollection(gomock.Any(), "folder_9", 4).Return(apperr.ErrConfig)

	if _, err := Open(context.Background(), 9, 4, nil, mock); !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("Open() error = %v, want ErrConfig", err)
	}
}

func TestIndex_ReconcileRestoresLostVectors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ix := f.open(t)
	if err := ix.Upsert(ctx, []Entry{
		entry("a.txt", 0, "alpha", 1, 0, 0),
		entry("b.txt", 0, "gamma", 0, 0, 1),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	// A row whose vector cannot be used again.
	if err := f.chunks.UpsertBatch(ctx, []storage.ChunkRecord{{
		ID: ChunkID(f.folderID, "c.txt", 0), FolderID: f.folderID, RelPath: "c.txt", ContentHash: "h-c", Text: "c", Vector: []float32{1},
	}}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	// The vectors never reached disk: a fresh store over the same rows.
	fresh, err := vectorstore.NewHNSWStore(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("NewHNSWStore() error = %v", err)
	}
	t.Cleanup(func() { _ = fresh.Close() })

	reopened, err := Open(ctx, f.folderID, 3, f.chunks, fresh)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	repair, err := reopened.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if repair.Restored != 2 {
		t.Errorf("Reconcile() restored = %d, want 2", repair.Restored)
	}
	if len(repair.Dropped) != 1 || repair.Dropped[0] != "c.txt" {
		t.Errorf("Reconcile() dropped = %v, want [c.txt]", repair.Dropped)
	}

	hits, err := reopened.Search(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "gamma" {
		t.Errorf("Search() after reconcile = %+v, want gamma", hits)
	}
	counts, _ := reopened.Count(ctx)
	if _, ok := counts["c.txt"]; ok {
		t.Errorf("Count() still lists c.txt: %v", counts)
	}

	again, err := reopened.Reconcile(ctx)
	if err != nil || again.Restored != 0 || len(again.Dropped) != 0 {
		t.Errorf("second Reconcile() = %+v, %v; want nothing to repair", again, err)
	}
}
