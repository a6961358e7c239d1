// Package folders applies folder lifecycle events from the admin side to
// the sync engine.
package folders

import (
	"context"
	"fmt"

	"docsync-ai/internal/config"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/syncer"
)

// Manager is the part of syncer.Manager the registry drives.
type Manager interface {
	Add(ctx context.Context, spec syncer.FolderSpec) (int64, error)
	Update(ctx context.Context, id int64, spec syncer.FolderSpec) error
	Rebind(ctx context.Context, id int64, providerID string) error
	Remove(ctx context.Context, id int64) error
}

// Event is a folder lifecycle event.
type Event interface {
	event()
}

// FolderCreated registers a folder and starts its initial sync.
type FolderCreated struct {
	Spec syncer.FolderSpec
}

// FolderUpdated reconfigures a folder. A new provider or root rebuilds
// its index.
type FolderUpdated struct {
	ID   int64
	Spec syncer.FolderSpec
}

// ProviderChanged rebinds a folder to another embedding provider.
type ProviderChanged struct {
	ID         int64
	ProviderID string
}

// FolderDeleted stops a folder and deletes everything indexed for it.
type FolderDeleted struct {
	ID int64
}

func (FolderCreated) event()   {}
func (FolderUpdated) event()   {}
func (ProviderChanged) event() {}
func (FolderDeleted) event()   {}

// Registry applies events to the manager.
type Registry struct {
	manager Manager
	store   storage.FolderStore
}

// NewRegistry creates a registry.
func NewRegistry(manager Manager, store storage.FolderStore) *Registry {
	return &Registry{manager: manager, store: store}
}

// Apply handles one event and returns the ID of the affected folder.
func (r *Registry) Apply(ctx context.Context, ev Event) (int64, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch e := ev.(type) {
	case FolderCreated:
		id, err := r.manager.Add(ctx, e.Spec)
		if err != nil {
			return 0, fmt.Errorf("failed to create folder %q: %w", e.Spec.Name, err)
		}
		logger.InfoContext(ctx, "folder created", "folder_id", id, "folder", e.Spec.Name)
		return id, nil
	case FolderUpdated:
		if err := r.manager.Update(ctx, e.ID, e.Spec); err != nil {
			return 0, fmt.Errorf("failed to update folder %d: %w", e.ID, err)
		}
		logger.InfoContext(ctx, "folder updated", "folder_id", e.ID)
		return e.ID, nil
	case ProviderChanged:
		if err := r.manager.Rebind(ctx, e.ID, e.ProviderID); err != nil {
			return 0, fmt.Errorf("failed to rebind folder %d: %w", e.ID, err)
		}
		logger.InfoContext(ctx, "folder rebound", "folder_id", e.ID, "provider", e.ProviderID)
		return e.ID, nil
	case FolderDeleted:
		if err := r.manager.Remove(ctx, e.ID); err != nil {
			return 0, fmt.Errorf("failed to delete folder %d: %w", e.ID, err)
		}
		logger.InfoContext(ctx, "folder deleted", "folder_id", e.ID)
		return e.ID, nil
	default:
		return 0, fmt.Errorf("unknown folder event %T", ev)
	}
}

// Seed reconciles the registered folders with the folders file. Declared
// folders are created or updated by name. With prune, registered folders
// the file no longer declares are deleted.
func (r *Registry) Seed(ctx context.Context, entries []config.FolderEntry, prune bool) error {
	declared := make(map[string]bool, len(entries))
	for _, e := range entries {
		declared[e.Name] = true
		spec := syncer.FolderSpec{Name: e.Name, RootPath: e.Path, ProviderID: e.Provider}
		if _, err := r.Apply(ctx, FolderCreated{Spec: spec}); err != nil {
			return err
		}
	}
	if !prune {
		return nil
	}

	existing, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	for _, f := range existing {
		if declared[f.Name] {
			continue
		}
		if _, err := r.Apply(ctx, FolderDeleted{ID: f.ID}); err != nil {
			return err
		}
	}
	return nil
}
