package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFolderRepo_GetOrCreateByName(t *testing.T) {
	repo := NewFolderRepo(newTestDB(t))
	ctx := context.Background()

	first, err := repo.GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx/docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if first.ID == 0 || first.Name != "docs" || first.RootPath != "/tmp/docs" || first.ProviderID != "local" {
		t.Errorf("GetOrCreateByName() = %+v", first)
	}
	if first.Ready() {
		t.Error("new folder should not be ready")
	}

	second, err := repo.GetOrCreateByName(ctx, "docs", "/other", "other", "/other")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if second.ID != first.ID || second.RootPath != "/tmp/docs" {
		t.Errorf("GetOrCreateByName() second call = %+v, want existing folder", second)
	}
}

func TestFolderRepo_Get_NotFound(t *testing.T) {
	repo := NewFolderRepo(newTestDB(t))

	_, err := repo.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFolderRepo_Lifecycle(t *testing.T) {
	repo := NewFolderRepo(newTestDB(t))
	ctx := context.Background()

	folder, err := repo.GetOrCreateByName(ctx, "docs", "/tmp/docs", "local", "/tmp/idx")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}

	if err := repo.SetBinding(ctx, folder.ID, "ollama|nomic|768"); err != nil {
		t.Fatalf("SetBinding() error = %v", err)
	}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkSynced(ctx, folder.ID, at); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	got, err := repo.Get(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Binding != "ollama|nomic|768" {
		t.Errorf("Binding = %q, want %q", got.Binding, "ollama|nomic|768")
	}
	if !got.Ready() || !got.LastSyncedAt.Equal(at) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, at)
	}

	got.ProviderID = "hosted"
	got.Name = "renamed"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.ClearSynced(ctx, folder.ID); err != nil {
		t.Fatalf("ClearSynced() error = %v", err)
	}

	got, err = repo.Get(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ProviderID != "hosted" || got.Name != "renamed" || got.Ready() {
		t.Errorf("after Update/ClearSynced got %+v", got)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAll() len = %d, want 1", len(all))
	}

	if err := repo.Delete(ctx, folder.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, folder.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
