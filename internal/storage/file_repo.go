package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FileStore persists folder snapshots.
type FileStore interface {
	// ListByFolder returns the snapshot entries of a folder ordered by path.
	ListByFolder(ctx context.Context, folderID int64) ([]FileRecord, error)
	// ReplaceAll atomically replaces a folder's snapshot with files.
	ReplaceAll(ctx context.Context, folderID int64, files []FileRecord) error
	// DeleteByFolder removes a folder's snapshot.
	DeleteByFolder(ctx context.Context, folderID int64) error
}

// FileRepo provides methods for snapshot operations.
// It implements the FileStore interface.
type FileRepo struct {
	db *sql.DB
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// ListByFolder returns the snapshot entries of a folder ordered by path.
// Returns an empty slice if the folder has never been synced.
func (r *FileRepo) ListByFolder(ctx context.Context, folderID int64) ([]FileRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT folder_id, rel_path, fingerprint, size, mod_time, synced_at FROM files WHERE folder_id = ? ORDER BY rel_path",
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var modTime int64
		if err := rows.Scan(&f.FolderID, &f.RelPath, &f.Fingerprint, &f.Size, &modTime, &f.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.ModTime = time.Unix(0, modTime)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// ReplaceAll replaces a folder's snapshot inside a single transaction so a
// crash leaves either the old or the new snapshot, never a mix.
func (r *FileRepo) ReplaceAll(ctx context.Context, folderID int64, files []FileRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM files WHERE folder_id = ?", folderID); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO files (folder_id, rel_path, fingerprint, size, mod_time, synced_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, f := range files {
		syncedAt := f.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		if _, err = stmt.ExecContext(ctx, folderID, f.RelPath, f.Fingerprint, f.Size, f.ModTime.UnixNano(), syncedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.RelPath, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// DeleteByFolder removes a folder's snapshot.
func (r *FileRepo) DeleteByFolder(ctx context.Context, folderID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM files WHERE folder_id = ?", folderID); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}
