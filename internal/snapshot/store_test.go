package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"docsync-ai/internal/storage"
)

func TestStore_LoadCommit(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	folder, err := storage.NewFolderRepo(db).GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	store := NewStore(storage.NewFileRepo(db))

	empty, err := store.Load(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Load() on new folder = %d entries, want 0", len(empty))
	}

	mod := time.Unix(1700000000, 0)
	want := Snapshot{
		"a.txt":     {Fingerprint: "1", Size: 3, ModTime: mod},
		"dir/b.txt": {Fingerprint: "2", Size: 4, ModTime: mod},
	}
	if err := store.Commit(ctx, folder.ID, want); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got, err := store.Load(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Fingerprint() != want.Fingerprint() {
		t.Errorf("Load() fingerprint = %s, want %s", got.Fingerprint(), want.Fingerprint())
	}
	if got["dir/b.txt"].RelPath != "dir/b.txt" || got["dir/b.txt"].FolderID != folder.ID {
		t.Errorf("Load() entry = %+v", got["dir/b.txt"])
	}
	if !Diff(want, got).Empty() {
		t.Errorf("Diff(committed, loaded) = %+v, want empty", Diff(want, got))
	}

	if err := store.Forget(ctx, folder.ID, []string{"a.txt", "missing.txt"}); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	got, err = store.Load(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := got["a.txt"]; ok || len(got) != 1 {
		t.Errorf("Load() after Forget() = %v, want only dir/b.txt", got.Paths())
	}

	if err := store.Clear(ctx, folder.ID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err = store.Load(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() after Clear() = %d entries, want 0", len(got))
	}
}
