package storage

import (
	"context"
	"testing"
	"time"
)

func TestFileRepo_ReplaceAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folder, err := NewFolderRepo(db).GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewFileRepo(db)

	mod := time.Unix(1700000000, 123456789)
	first := []FileRecord{
		{RelPath: "b.txt", Fingerprint: "bb", Size: 2, ModTime: mod},
		{RelPath: "a.txt", Fingerprint: "aa", Size: 1, ModTime: mod},
	}
	if err := repo.ReplaceAll(ctx, folder.ID, first); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	got, err := repo.ListByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByFolder() len = %d, want 2", len(got))
	}
	if got[0].RelPath != "a.txt" || got[1].RelPath != "b.txt" {
		t.Errorf("ListByFolder() order = %s, %s", got[0].RelPath, got[1].RelPath)
	}
	if !got[0].ModTime.Equal(mod) {
		t.Errorf("ModTime = %v, want %v", got[0].ModTime, mod)
	}

	if err := repo.ReplaceAll(ctx, folder.ID, []FileRecord{{RelPath: "c.txt", Fingerprint: "cc", ModTime: mod}}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	got, err = repo.ListByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "c.txt" {
		t.Errorf("ListByFolder() after replace = %+v, want only c.txt", got)
	}
}

func TestFileRepo_ReplaceAll_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folder, err := NewFolderRepo(db).GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewFileRepo(db)

	if err := repo.ReplaceAll(ctx, folder.ID, []FileRecord{{RelPath: "keep.txt", Fingerprint: "k"}}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	// Duplicate primary key aborts the transaction.
	dup := []FileRecord{{RelPath: "x.txt", Fingerprint: "1"}, {RelPath: "x.txt", Fingerprint: "2"}}
	if err := repo.ReplaceAll(ctx, folder.ID, dup); err == nil {
		t.Fatal("ReplaceAll() expected error for duplicate path")
	}

	got, err := repo.ListByFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListByFolder() error = %v", err)
	}
	if len(got) != 1 || got[0].RelPath != "keep.txt" {
		t.Errorf("snapshot after failed replace = %+v, want keep.txt only", got)
	}
}
