package snapshot

import (
	"context"
	"fmt"

	"docsync-ai/internal/storage"
)

// Store loads and commits folder snapshots.
type Store struct {
	files storage.FileStore
}

// NewStore creates a snapshot store backed by files.
func NewStore(files storage.FileStore) *Store {
	return &Store{files: files}
}

// Load returns the last committed snapshot of a folder. A folder that was
// never synced yields an empty snapshot.
func (s *Store) Load(ctx context.Context, folderID int64) (Snapshot, error) {
	records, err := s.files.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap := make(Snapshot, len(records))
	for _, r := range records {
		snap[r.RelPath] = r
	}
	return snap, nil
}

// Commit replaces the folder's snapshot with snap in one transaction.
func (s *Store) Commit(ctx context.Context, folderID int64, snap Snapshot) error {
	records := make([]storage.FileRecord, 0, len(snap))
	for _, path := range snap.Paths() {
		rec := snap[path]
		rec.FolderID = folderID
		rec.RelPath = path
		records = append(records, rec)
	}
	if err := s.files.ReplaceAll(ctx, folderID, records); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Forget removes paths from the folder's snapshot so the next cycle
// treats them as new.
func (s *Store) Forget(ctx context.Context, folderID int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	snap, err := s.Load(ctx, folderID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		delete(snap, p)
	}
	return s.Commit(ctx, folderID, snap)
}

// Clear removes the folder's snapshot.
func (s *Store) Clear(ctx context.Context, folderID int64) error {
	if err := s.files.DeleteByFolder(ctx, folderID); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}
