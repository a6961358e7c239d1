package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/chunker"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/embedding"
	"docsync-ai/internal/index"
	"docsync-ai/internal/loader"
	"docsync-ai/internal/snapshot"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/vectorstore"
	"docsync-ai/internal/watcher"
)

// DefaultRescanInterval is how often a folder without a working watcher
// is rescanned, and how often a degraded folder checks its root.
const DefaultRescanInterval = 60 * time.Second

// DefaultQueryCacheSize is the number of query embeddings cached per folder.
const DefaultQueryCacheSize = 256

// Deps are the stores and helpers shared by all folders.
type Deps struct {
	Folders   storage.FolderStore
	Files     storage.FileStore
	Snapshots *snapshot.Store
	Chunks    storage.ChunkStore
	Vectors   vectorstore.VectorStore
	Loader    *loader.Registry
	Chunker   *chunker.Chunker
}

// Options tunes folder workers.
type Options struct {
	RescanInterval time.Duration
	Watch          watcher.Options
	// DisableWatch turns off filesystem events; folders are then only
	// synced by the rescan timer and explicit requests.
	DisableWatch   bool
	Retry          embedding.RetryConfig
	QueryCacheSize int
	// NewEmbedder builds the embedder for a provider. Defaults to embedding.New.
	NewEmbedder func(embedding.Config) (embedding.Embedder, error)
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RescanInterval <= 0 {
		o.RescanInterval = DefaultRescanInterval
	}
	if o.Retry.MaxRetries == 0 && o.Retry.InitialDelay == 0 {
		o.Retry = embedding.DefaultRetryConfig()
	}
	if o.QueryCacheSize <= 0 {
		o.QueryCacheSize = DefaultQueryCacheSize
	}
	if o.NewEmbedder == nil {
		o.NewEmbedder = embedding.New
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// FolderSpec is the desired configuration of a watched folder.
type FolderSpec struct {
	Name       string
	RootPath   string
	ProviderID string
}

// Validate checks the fields that do not depend on the provider set.
func (s FolderSpec) Validate() error {
	if s.Name == "" {
		return &apperr.ValidationError{Field: "name", Message: "is required"}
	}
	if s.RootPath == "" {
		return &apperr.ValidationError{Field: "root_path", Message: "is required"}
	}
	if !filepath.IsAbs(s.RootPath) {
		return &apperr.ValidationError{Field: "root_path", Message: "must be absolute"}
	}
	if s.ProviderID == "" {
		return &apperr.ValidationError{Field: "provider_id", Message: "is required"}
	}
	return nil
}

// Manager owns one Folder worker per watched folder.
type Manager struct {
	deps      Deps
	providers map[string]embedding.Config
	opts      Options

	mu      sync.Mutex
	folders map[int64]*Folder
	ctx     context.Context
	group   *errgroup.Group
}

// NewManager creates a manager. providers maps provider IDs to their
// configuration.
func NewManager(deps Deps, providers map[string]embedding.Config, opts Options) *Manager {
	return &Manager{
		deps:      deps,
		providers: providers,
		opts:      opts.withDefaults(),
		folders:   make(map[int64]*Folder),
	}
}

// Start loads the persisted folders and starts their workers. Workers run
// until ctx is cancelled; Wait blocks until they have returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.group, m.ctx = errgroup.WithContext(ctx)
	m.mu.Unlock()
	return m.Load(ctx)
}

// Load loads the persisted folders. Without a prior Start no workers run and
// folders only sync through SyncAndWait and Rebuild.
func (m *Manager) Load(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	records, err := m.deps.Folders.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		if f, ok := m.folders[rec.ID]; ok {
			// Registered before Start: its worker is not running yet.
			if m.group != nil && !f.started() {
				f.start(m.ctx, m.group)
			}
			continue
		}
		f, err := m.newFolder(rec)
		if err != nil {
			logger.ErrorContext(ctx, "failed to load folder", "folder", rec.Name, "error", err)
			continue
		}
		m.launch(f)
	}
	logger.InfoContext(ctx, "folders loaded", "count", len(m.folders), "workers", m.group != nil)
	return nil
}

// Wait blocks until every worker has returned.
func (m *Manager) Wait() error {
	m.mu.Lock()
	g := m.group
	m.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

func (m *Manager) provider(id string) (embedding.Config, error) {
	cfg, ok := m.providers[id]
	if !ok {
		return embedding.Config{}, &apperr.ValidationError{Field: "provider_id", Message: fmt.Sprintf("unknown provider %q", id)}
	}
	return cfg, nil
}

func (m *Manager) newFolder(rec storage.FolderRecord) (*Folder, error) {
	cfg, err := m.provider(rec.ProviderID)
	if err != nil {
		return nil, err
	}
	embedder, err := m.opts.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder for provider %s: %w", cfg.ID, err)
	}
	return newFolder(rec, cfg, embedder, m.deps, m.opts), nil
}

// launch registers f and starts its worker when the manager is running.
// The caller holds m.mu.
func (m *Manager) launch(f *Folder) {
	m.folders[f.id] = f
	if m.group != nil {
		f.start(m.ctx, m.group)
	}
}

func (m *Manager) folder(id int64) (*Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, apperr.ErrNotFound)
	}
	return f, nil
}

// Add registers a folder, or reconciles an existing folder of the same
// name with spec. It returns the folder ID.
func (m *Manager) Add(ctx context.Context, spec FolderSpec) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if _, err := m.provider(spec.ProviderID); err != nil {
		return 0, err
	}

	rec, err := m.deps.Folders.GetOrCreateByName(ctx, spec.Name, spec.RootPath, spec.ProviderID, "")
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	_, running := m.folders[rec.ID]
	m.mu.Unlock()
	if running {
		return rec.ID, m.Update(ctx, rec.ID, spec)
	}

	if rec.IndexPath == "" {
		rec.IndexPath = index.CollectionName(rec.ID)
		if err := m.deps.Folders.Update(ctx, rec); err != nil {
			return 0, err
		}
	}

	f, err := m.newFolder(rec)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.launch(f)
	m.mu.Unlock()

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "folder added", "folder_id", rec.ID, "folder", rec.Name, "root", rec.RootPath)
	if rec.RootPath != spec.RootPath || rec.ProviderID != spec.ProviderID {
		return rec.ID, m.Update(ctx, rec.ID, spec)
	}
	return rec.ID, nil
}

// Update applies spec to a registered folder. A provider change rebinds
// and a root change relocates; both rebuild the index.
func (m *Manager) Update(ctx context.Context, id int64, spec FolderSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	f, err := m.folder(id)
	if err != nil {
		return err
	}
	rec, err := m.deps.Folders.Get(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case rec.ProviderID != spec.ProviderID || rec.RootPath != spec.RootPath:
		rec.Name = spec.Name
		rec.RootPath = spec.RootPath
		rec.ProviderID = spec.ProviderID
		return m.replace(ctx, f, rec)
	case rec.Name != spec.Name:
		rec.Name = spec.Name
		if err := m.deps.Folders.Update(ctx, rec); err != nil {
			return err
		}
		f.mu.Lock()
		f.record.Name = spec.Name
		f.mu.Unlock()
	}
	return nil
}

// Rebind switches a folder to another embedding provider. The existing
// index is dropped and the folder reports not ready until the rebuild
// under the new provider completes.
func (m *Manager) Rebind(ctx context.Context, id int64, providerID string) error {
	if _, err := m.provider(providerID); err != nil {
		return err
	}
	f, err := m.folder(id)
	if err != nil {
		return err
	}
	rec, err := m.deps.Folders.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.ProviderID == providerID {
		return nil
	}
	rec.ProviderID = providerID
	return m.replace(ctx, f, rec)
}

// replace stops f, discards its index and starts a fresh worker for rec.
func (m *Manager) replace(ctx context.Context, f *Folder, rec storage.FolderRecord) error {
	logger := contextutil.LoggerFromContext(ctx)

	next, err := m.newFolder(rec)
	if err != nil {
		return err
	}

	f.Stop()
	f.runMu.Lock()
	err = f.reset(ctx)
	f.runMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to reset folder: %w", err)
	}
	if err := m.deps.Folders.Update(ctx, rec); err != nil {
		return err
	}
	rec.Binding = ""
	rec.LastSyncedAt = nil
	next.record = rec

	m.mu.Lock()
	m.launch(next)
	m.mu.Unlock()

	logger.InfoContext(ctx, "folder rebuilding", "folder_id", rec.ID, "provider", rec.ProviderID, "root", rec.RootPath)
	return nil
}

// Remove stops a folder and deletes its index, snapshot and record.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	f, err := m.folder(id)
	if err != nil {
		return err
	}
	f.Stop()

	f.runMu.Lock()
	defer f.runMu.Unlock()
	if err := index.Drop(ctx, id, m.deps.Chunks, m.deps.Vectors); err != nil {
		return err
	}
	if err := m.deps.Snapshots.Clear(ctx, id); err != nil {
		return err
	}
	if err := m.deps.Folders.Delete(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	m.mu.Lock()
	delete(m.folders, id)
	m.mu.Unlock()

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "folder removed", "folder_id", id)
	return nil
}

// Sync enqueues a sync cycle and returns immediately.
func (m *Manager) Sync(ctx context.Context, id int64, mode Mode) error {
	f, err := m.folder(id)
	if err != nil {
		return err
	}
	if err := f.configError(); err != nil {
		return err
	}
	f.Trigger(mode, nil)
	return nil
}

// SyncAndWait runs a sync cycle in the caller's goroutine.
func (m *Manager) SyncAndWait(ctx context.Context, id int64, mode Mode) (Report, error) {
	f, err := m.folder(id)
	if err != nil {
		return Report{}, err
	}
	return f.SyncNow(ctx, mode)
}

// Rebuild drops a folder's index and runs a full sync. It clears a
// configuration error.
func (m *Manager) Rebuild(ctx context.Context, id int64) (Report, error) {
	f, err := m.folder(id)
	if err != nil {
		return Report{}, err
	}
	return f.Rebuild(ctx)
}

// Status returns the status of one folder.
func (m *Manager) Status(ctx context.Context, id int64) (Status, error) {
	f, err := m.folder(id)
	if err != nil {
		return Status{}, err
	}
	return f.Status(ctx), nil
}

// List returns the status of every folder ordered by name.
func (m *Manager) List(ctx context.Context) []Status {
	m.mu.Lock()
	folders := make([]*Folder, 0, len(m.folders))
	for _, f := range m.folders {
		folders = append(folders, f)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.Status(ctx))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].FolderID < out[j].FolderID
	})
	return out
}

// Coverage returns index statistics for one folder.
func (m *Manager) Coverage(ctx context.Context, id int64) (*CoverageStats, error) {
	f, err := m.folder(id)
	if err != nil {
		return nil, err
	}
	return coverage(ctx, m.deps.Chunks, m.deps.Files, id, m.deps.Chunker.Signature(), f.signature)
}

// Resolve returns the query embedder and index of a folder that is ready
// for retrieval. It fails with apperr.ErrNotReady before the initial sync
// completes, and with the configuration error of a degraded folder.
func (m *Manager) Resolve(ctx context.Context, id int64) (embedding.Embedder, index.Searcher, error) {
	f, err := m.folder(id)
	if err != nil {
		return nil, nil, err
	}
	if err := f.configError(); err != nil {
		return nil, nil, err
	}

	f.mu.Lock()
	ready := f.record.Ready() && f.record.Binding == f.signature
	f.mu.Unlock()
	if !ready {
		return nil, nil, fmt.Errorf("folder %d has not completed an initial sync: %w", id, apperr.ErrNotReady)
	}

	ix, err := f.openIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	return f.query, ix, nil
}
