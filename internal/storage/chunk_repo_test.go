package storage

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4e38}
	if got := DecodeVector(EncodeVector(v)); !reflect.DeepEqual(got, v) {
		t.Errorf("DecodeVector(EncodeVector()) = %v, want %v", got, v)
	}
	if got := DecodeVector(nil); len(got) != 0 {
		t.Errorf("DecodeVector(nil) len = %d, want 0", len(got))
	}
}

func TestChunkRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folder, err := NewFolderRepo(db).GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewChunkRepo(db)

	chunks := []ChunkRecord{
		{ID: "a-1", FolderID: folder.ID, RelPath: "a.txt", Ordinal: 1, ContentHash: "h2", Text: "second", Vector: []float32{0, 1}},
		{ID: "a-0", FolderID: folder.ID, RelPath: "a.txt", Ordinal: 0, ContentHash: "h1", Text: "first", Vector: []float32{1, 0}},
		{ID: "b-0", FolderID: folder.ID, RelPath: "b.txt", Ordinal: 0, ContentHash: "h3", Text: "other", Vector: []float32{1, 1}},
	}
	if err := repo.UpsertBatch(ctx, chunks); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	byFile, err := repo.ListByFile(ctx, folder.ID, "a.txt")
	if err != nil {
		t.Fatalf("ListByFile() error = %v", err)
	}
	if len(byFile) != 2 || byFile[0].ID != "a-0" || byFile[1].ID != "a-1" {
		t.Fatalf("ListByFile() = %+v", byFile)
	}
	if !reflect.DeepEqual(byFile[0].Vector, []float32{1, 0}) {
		t.Errorf("Vector = %v, want [1 0]", byFile[0].Vector)
	}

	counts, err := repo.SourceCounts(ctx, folder.ID)
	if err != nil {
		t.Fatalf("SourceCounts() error = %v", err)
	}
	if want := map[string]int{"a.txt": 2, "b.txt": 1}; !reflect.DeepEqual(counts, want) {
		t.Errorf("SourceCounts() = %v, want %v", counts, want)
	}

	// Replacing by id keeps a single row.
	updated := chunks[0]
	updated.Text = "second v2"
	if err := repo.UpsertBatch(ctx, []ChunkRecord{updated}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	got, err := repo.GetByIDs(ctx, []string{"a-1", "missing"})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 1 || got["a-1"].Text != "second v2" {
		t.Errorf("GetByIDs() = %+v", got)
	}

	if err := repo.DeleteByFile(ctx, folder.ID, "a.txt"); err != nil {
		t.Fatalf("DeleteByFile() error = %v", err)
	}
	if err := repo.DeleteByIDs(ctx, []string{"b-0"}); err != nil {
		t.Fatalf("DeleteByIDs() error = %v", err)
	}
	all, err := repo.ListByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListByFolder() len = %d, want 0", len(all))
	}
}

func TestChunkRepo_GetByIDs_LargeBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folder, err := NewFolderRepo(db).GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewChunkRepo(db)

	var chunks []ChunkRecord
	var ids []string
	for i := 0; i < 1200; i++ {
		id := fmt.Sprintf("c-%d", i)
		ids = append(ids, id)
		chunks = append(chunks, ChunkRecord{ID: id, FolderID: folder.ID, RelPath: "big.txt", Ordinal: i, ContentHash: id, Text: id})
	}
	if err := repo.UpsertBatch(ctx, chunks); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	got, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(got) != 1200 {
		t.Errorf("GetByIDs() len = %d, want 1200", len(got))
	}
	if err := repo.DeleteByIDs(ctx, ids); err != nil {
		t.Fatalf("DeleteByIDs() error = %v", err)
	}
}

func TestChunkRepo_CascadeOnFolderDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folders := NewFolderRepo(db)
	folder, err := folders.GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewChunkRepo(db)
	if err := repo.UpsertBatch(ctx, []ChunkRecord{{ID: "x", FolderID: folder.ID, RelPath: "x.txt", ContentHash: "h", Text: "t"}}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	if err := folders.Delete(ctx, folder.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	all, err := repo.ListByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("chunks after folder delete = %d, want 0", len(all))
	}
}
