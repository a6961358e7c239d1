// Package app wires the storage, index, sync and retrieval layers from
// configuration. The API server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/chunker"
	"docsync-ai/internal/config"
	"docsync-ai/internal/embedding"
	"docsync-ai/internal/folders"
	"docsync-ai/internal/llm"
	"docsync-ai/internal/loader"
	"docsync-ai/internal/rag"
	"docsync-ai/internal/snapshot"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/syncer"
	"docsync-ai/internal/vectorstore"
	"docsync-ai/internal/watcher"
)

// App holds the wired components.
type App struct {
	Config      *config.Config
	Folders     *config.FoldersFile
	DB          *sql.DB
	VectorStore vectorstore.VectorStore
	Manager     *syncer.Manager
	Registry    *folders.Registry
	Retriever   rag.Retriever
	Engine      rag.Engine

	closers []func() error
}

// NewLogger builds the process logger from the log level and format settings.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// New opens the database and vector store, loads the folders file and
// builds the sync manager and RAG pipeline. Folders are not loaded; call
// Seed and then Manager.Start or Manager.Load.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	ff, err := config.LoadFolders(cfg.FoldersFile)
	if err != nil {
		return nil, err
	}
	a.Folders = ff

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	switch cfg.VectorBackend {
	case config.BackendQdrant:
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.VectorStore = qs
		a.closers = append(a.closers, qs.Close)
	default:
		hs, err := vectorstore.NewHNSWStore(cfg.IndexDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open index directory: %w", err)
		}
		a.VectorStore = hs
		a.closers = append(a.closers, hs.Close)
	}
	logger.InfoContext(ctx, "vector store ready", "backend", cfg.VectorBackend)

	chunks, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	folderRepo := storage.NewFolderRepo(db)
	fileRepo := storage.NewFileRepo(db)
	deps := syncer.Deps{
		Folders:   folderRepo,
		Files:     fileRepo,
		Snapshots: snapshot.NewStore(fileRepo),
		Chunks:    storage.NewChunkRepo(db),
		Vectors:   a.VectorStore,
		Loader:    loader.NewRegistry(nil),
		Chunker:   chunks,
	}
	a.Manager = syncer.NewManager(deps, ff.ProviderMap(), syncer.Options{
		RescanInterval: cfg.RescanInterval,
		Watch:          watcher.Options{DebounceWindow: cfg.WatchDebounce},
		DisableWatch:   cfg.DisableWatch,
		Logger:         logger,
	})
	a.Registry = folders.NewRegistry(a.Manager, folderRepo)

	generator, err := llm.New(cfg.LLM())
	if err != nil {
		return nil, err
	}
	generator = llm.WithRetry(generator, embedding.DefaultRetryConfig())
	a.Retriever = rag.NewRetriever(a.Manager)
	a.Engine = rag.NewEngine(a.Retriever, generator, rag.Options{
		ContextBudget:      cfg.ContextBudget,
		SkipRetrievalCheck: cfg.SkipRetrievalCheck,
		LexicalRerank:      cfg.LexicalRerank,
	})

	ok = true
	return a, nil
}

// Seed registers the folders declared in the folders file.
func (a *App) Seed(ctx context.Context, prune bool) error {
	return a.Registry.Seed(ctx, a.Folders.Folders, prune)
}

// FolderID resolves a folder by name or numeric ID.
func (a *App) FolderID(ctx context.Context, ref string) (int64, error) {
	for _, st := range a.Manager.List(ctx) {
		if st.Name == ref || strconv.FormatInt(st.FolderID, 10) == strings.TrimSpace(ref) {
			return st.FolderID, nil
		}
	}
	return 0, fmt.Errorf("folder %q: %w", ref, apperr.ErrNotFound)
}

// Close releases the vector store and database in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
