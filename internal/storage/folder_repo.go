package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docsync-ai/internal/apperr"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = apperr.ErrNotFound

// FolderStore defines the interface for folder persistence.
type FolderStore interface {
	// GetOrCreateByName gets an existing folder by name, or creates it.
	GetOrCreateByName(ctx context.Context, name, rootPath, providerID, indexPath string) (FolderRecord, error)
	// Get returns a folder by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id int64) (FolderRecord, error)
	// ListAll returns all folders ordered by name.
	ListAll(ctx context.Context) ([]FolderRecord, error)
	// Update rewrites name, root path, provider and index path.
	Update(ctx context.Context, folder FolderRecord) error
	// SetBinding records the provider signature the index was built with.
	SetBinding(ctx context.Context, id int64, binding string) error
	// MarkSynced records a successful sync cycle.
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	// ClearSynced returns a folder to the not-ready state.
	ClearSynced(ctx context.Context, id int64) error
	// Delete removes the folder with its snapshot and chunk rows.
	Delete(ctx context.Context, id int64) error
}

// FolderRepo provides methods for folder operations.
// It implements the FolderStore interface.
type FolderRepo struct {
	db *sql.DB
}

// NewFolderRepo creates a new FolderRepo.
func NewFolderRepo(db *sql.DB) *FolderRepo {
	return &FolderRepo{db: db}
}

const folderColumns = "id, name, root_path, provider_id, index_path, binding, last_synced_at, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (FolderRecord, error) {
	var f FolderRecord
	var lastSynced sql.NullTime
	var createdAt sql.NullTime
	if err := row.Scan(&f.ID, &f.Name, &f.RootPath, &f.ProviderID, &f.IndexPath, &f.Binding, &lastSynced, &createdAt); err != nil {
		return FolderRecord{}, err
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		f.LastSyncedAt = &t
	}
	if createdAt.Valid {
		f.CreatedAt = createdAt.Time
	}
	return f, nil
}

// GetOrCreateByName gets an existing folder by name, or creates it if it doesn't exist.
// An existing folder is returned unchanged; use Update to change its fields.
func (r *FolderRepo) GetOrCreateByName(ctx context.Context, name, rootPath, providerID, indexPath string) (FolderRecord, error) {
	folder, err := scanFolder(r.db.QueryRowContext(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE name = ?", name))
	if err == nil {
		return folder, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return FolderRecord{}, fmt.Errorf("failed to get folder: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO folders (name, root_path, provider_id, index_path) VALUES (?, ?, ?, ?)",
		name, rootPath, providerID, indexPath,
	)
	if err != nil {
		return FolderRecord{}, fmt.Errorf("failed to insert folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return FolderRecord{}, fmt.Errorf("failed to get folder id: %w", err)
	}

	return r.Get(ctx, id)
}

// Get returns a folder by ID. Returns ErrNotFound if not found.
func (r *FolderRepo) Get(ctx context.Context, id int64) (FolderRecord, error) {
	folder, err := scanFolder(r.db.QueryRowContext(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return FolderRecord{}, ErrNotFound
	}
	if err != nil {
		return FolderRecord{}, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

// ListAll returns all folders ordered by name.
func (r *FolderRepo) ListAll(ctx context.Context) ([]FolderRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+folderColumns+" FROM folders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var folders []FolderRecord
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}

	return folders, nil
}

// Update rewrites the mutable fields of a folder.
func (r *FolderRepo) Update(ctx context.Context, folder FolderRecord) error {
	return r.exec(ctx, "update folder",
		"UPDATE folders SET name = ?, root_path = ?, provider_id = ?, index_path = ? WHERE id = ?",
		folder.Name, folder.RootPath, folder.ProviderID, folder.IndexPath, folder.ID)
}

// SetBinding records the provider signature the index was built with.
func (r *FolderRepo) SetBinding(ctx context.Context, id int64, binding string) error {
	return r.exec(ctx, "set binding", "UPDATE folders SET binding = ? WHERE id = ?", binding, id)
}

// MarkSynced records a successful sync cycle.
func (r *FolderRepo) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, "mark synced", "UPDATE folders SET last_synced_at = ? WHERE id = ?", at.UTC(), id)
}

// ClearSynced returns a folder to the not-ready state.
func (r *FolderRepo) ClearSynced(ctx context.Context, id int64) error {
	return r.exec(ctx, "clear synced", "UPDATE folders SET last_synced_at = NULL WHERE id = ?", id)
}

// Delete removes the folder. Snapshot and chunk rows go with it via cascade.
func (r *FolderRepo) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, "delete folder", "DELETE FROM folders WHERE id = ?", id)
}

func (r *FolderRepo) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
