package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
)

// Watcher recursively watches a folder root with fsnotify and emits
// debounced batches of FileEvent. Directories created after Start are added
// to the watch set as they appear.
type Watcher struct {
	root      string
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error

	mu      sync.Mutex
	stopped bool
}

// New creates a watcher for root. Call Run to start watching.
func New(root string, opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:      absRoot,
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.BufferSize),
		errors:    make(chan error, 8),
	}, nil
}

// Run watches until ctx is cancelled, Close is called, or the root becomes
// unavailable. Losing the root is reported on Errors and returned.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := w.addRecursive(w.root); err != nil {
		w.Close()
		return fmt.Errorf("%w: %v", apperr.ErrRootUnavailable, err)
	}
	logger.DebugContext(ctx, "watcher started", "root", w.root)

	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if err := w.handle(event); err != nil {
				w.emitError(err)
				return err
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watcher error", "root", w.root, "error", err)
			w.emitError(err)
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; ask for a full rescan.
				w.debouncer.Add(FileEvent{Path: ".", Operation: OpModify, IsDir: true, Timestamp: time.Now()})
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) error {
	if event.Name == w.root && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		return fmt.Errorf("%w: %s was removed", apperr.ErrRootUnavailable, w.root)
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || IgnoredPath(rel) {
		return nil
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
		if isDir {
			// Files may already exist in a directory moved into the tree.
			_ = w.addRecursive(event.Name)
		}
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename arrives as Rename on the old name and Create on the new
		// one, so it becomes a delete followed by a create.
		op = OpDelete
	default:
		return nil
	}

	w.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && Ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil && path == w.root {
			return err
		}
		return nil
	})
}

func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of debounced event batches.
// The channel is closed when the watcher stops.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns the channel of watcher errors.
// The channel is closed when the watcher stops.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher and releases resources.
// Safe to call multiple times.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	w.debouncer.Stop()
	_ = w.fsWatcher.Close()
	close(w.errors)
}
