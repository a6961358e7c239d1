package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/embedding"
	"docsync-ai/internal/index"
	"docsync-ai/internal/snapshot"
	"docsync-ai/internal/storage"
	"docsync-ai/internal/watcher"
)

// request is a pending sync trigger. Requests that arrive while a cycle
// runs are merged; a full request absorbs any path list.
type request struct {
	full  bool
	paths map[string]struct{}
}

func (r *request) merge(full bool, paths []string) {
	if r.full {
		return
	}
	if full || len(paths) == 0 {
		r.full = true
		r.paths = nil
		return
	}
	if r.paths == nil {
		r.paths = make(map[string]struct{}, len(paths))
	}
	for _, p := range paths {
		if p == "." || p == "" {
			r.full = true
			r.paths = nil
			return
		}
		r.paths[p] = struct{}{}
	}
}

func (r *request) mode() Mode {
	if r.full {
		return ModeFull
	}
	return ModeIncremental
}

func (r *request) list() []string {
	out := make([]string, 0, len(r.paths))
	for p := range r.paths {
		out = append(out, p)
	}
	return out
}

// Folder runs sync cycles for one watched folder. At most one cycle runs at
// a time; Run consumes triggers from the watcher, the rescan timer and
// Trigger calls.
type Folder struct {
	id        int64
	deps      Deps
	opts      Options
	provider  embedding.Config
	signature string
	batch     *embedding.BatchEmbedder
	query     *embedding.CachedEmbedder
	scanner   *snapshot.Scanner
	logger    *slog.Logger

	life   context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	runMu  sync.Mutex
	openMu sync.Mutex

	mu       sync.Mutex
	record   storage.FolderRecord
	state    State
	lastErr  error
	pending  *request
	report   *Report
	files    int
	fp       string
	watching bool
	running  bool
	ix       *index.Index
}

func newFolder(rec storage.FolderRecord, provider embedding.Config, embedder embedding.Embedder, deps Deps, opts Options) *Folder {
	life, cancel := context.WithCancel(context.Background())
	f := &Folder{
		id:        rec.ID,
		deps:      deps,
		opts:      opts,
		provider:  provider,
		signature: BindingSignature(provider.Signature(), deps.Chunker.Signature()),
		batch:     embedding.NewBatchEmbedder(embedder, provider.EffectiveBatchSize(), opts.Retry),
		query:     embedding.NewCachedEmbedder(embedding.NewBatchEmbedder(embedder, 1, opts.Retry), opts.QueryCacheSize),
		logger:    opts.Logger.With("folder_id", rec.ID, "folder", rec.Name),
		life:      life,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		record:    rec,
	}
	f.scanner = snapshot.NewScanner(rec.RootPath, f.accept)
	return f
}

// accept is the scan filter: ignored names never take part, and files are
// only tracked when a loader can extract them.
func (f *Folder) accept(rel string, isDir bool) bool {
	if watcher.Ignored(path.Base(rel)) {
		return false
	}
	return isDir || f.deps.Loader.Supports(rel)
}

// ID returns the folder ID.
func (f *Folder) ID() int64 {
	return f.id
}

// Signature returns the binding signature this folder's index must carry.
func (f *Folder) Signature() string {
	return f.signature
}

// Trigger requests a sync cycle. It never blocks: if a cycle is running,
// the request is merged into the pending one and runs next.
func (f *Folder) Trigger(mode Mode, paths []string) {
	f.mu.Lock()
	if f.pending == nil {
		f.pending = &request{}
	}
	f.pending.merge(mode == ModeFull, paths)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Folder) takePending() *request {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.pending
	f.pending = nil
	return req
}

// SyncNow runs one cycle in the caller's goroutine and returns its report.
func (f *Folder) SyncNow(ctx context.Context, mode Mode) (Report, error) {
	req := &request{}
	req.merge(mode == ModeFull, nil)
	return f.cycle(ctx, req)
}

// bind derives a context that also ends when the folder is stopped.
func (f *Folder) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (f *Folder) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// configError returns the error that keeps the folder degraded until a
// rebuild, or nil.
func (f *Folder) configError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDegraded && errors.Is(f.lastErr, apperr.ErrConfig) {
		return f.lastErr
	}
	return nil
}

func (f *Folder) degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateDegraded
}

func (f *Folder) cycle(ctx context.Context, req *request) (Report, error) {
	f.runMu.Lock()
	defer f.runMu.Unlock()

	ctx, stop := f.bind(ctx)
	defer stop()
	ctx = contextutil.WithLogger(ctx, f.logger)

	if err := f.configError(); err != nil {
		return Report{}, err
	}

	report := Report{Mode: req.mode(), StartedAt: time.Now()}
	err := f.run(ctx, req, &report)
	report.Duration = time.Since(report.StartedAt)
	f.finish(ctx, &report, err)
	return report, err
}

func (f *Folder) finish(ctx context.Context, report *Report, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastErr = err
	switch {
	case err == nil:
		f.state = StateIdle
		f.report = report
		f.logger.InfoContext(ctx, "sync completed",
			"mode", report.Mode,
			"added", report.Added,
			"modified", report.Modified,
			"removed", report.Removed,
			"renamed", report.Renamed,
			"failed", len(report.Failed),
			"embedded", report.Embedded,
			"duration", report.Duration)
	case errors.Is(err, apperr.ErrRootUnavailable), errors.Is(err, apperr.ErrConfig):
		f.state = StateDegraded
		f.logger.WarnContext(ctx, "folder degraded", "error", err)
	default:
		f.state = StateIdle
		f.logger.ErrorContext(ctx, "sync failed", "error", err)
	}
}

// run is one cycle: scan, diff, apply, then commit. The snapshot is only
// committed after the index mutations succeeded and were flushed.
func (f *Folder) run(ctx context.Context, req *request, report *Report) error {
	rec, err := f.deps.Folders.Get(ctx, f.id)
	if err != nil {
		return fmt.Errorf("failed to load folder: %w", err)
	}
	f.mu.Lock()
	f.record = rec
	f.mu.Unlock()

	if rec.Binding != "" && rec.Binding != f.signature {
		return fmt.Errorf("%w: index was built with binding %s, provider %s now yields %s; rebuild required",
			apperr.ErrConfig, rec.Binding, f.provider.ID, f.signature)
	}

	// Reconciling may forget snapshot entries, so it precedes the load.
	ix, err := f.openIndex(ctx)
	if err != nil {
		return err
	}

	f.setState(StateScanning)
	prev, err := f.deps.Snapshots.Load(ctx, f.id)
	if err != nil {
		return err
	}

	var scan snapshot.ScanResult
	if req.full || len(prev) == 0 {
		scan, err = f.scanner.ScanAll(ctx, prev)
	} else {
		scan, err = f.scanner.ScanPaths(ctx, prev, req.list())
	}
	if err != nil {
		return err
	}
	report.Hashed = scan.Hashed
	for p, ferr := range scan.Failed {
		report.fail(p, ferr)
	}

	f.setState(StateDiffing)
	changes := snapshot.Diff(prev, scan.Snapshot)

	if rec.Binding == "" {
		if err := f.deps.Folders.SetBinding(ctx, f.id, f.signature); err != nil {
			return err
		}
	}

	next := scan.Snapshot
	if !changes.Empty() {
		f.setState(StateApplying)
		next, err = f.apply(ctx, ix, prev, scan.Snapshot, changes, report)
		if err != nil {
			return err
		}
	}

	if err := ix.Flush(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	if !equal(prev, next) {
		next.Stamp(prev, now)
		if err := f.deps.Snapshots.Commit(ctx, f.id, next); err != nil {
			return err
		}
	}
	if err := f.deps.Folders.MarkSynced(ctx, f.id, now); err != nil {
		return err
	}

	f.mu.Lock()
	f.record.Binding = f.signature
	f.record.LastSyncedAt = &now
	f.files = len(next)
	f.fp = next.Fingerprint().String()
	f.mu.Unlock()
	return nil
}

// equal reports whether two snapshots hold the same entries.
func equal(a, b snapshot.Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for p, x := range a {
		y, ok := b[p]
		if !ok || x.Fingerprint != y.Fingerprint || x.Size != y.Size || !x.ModTime.Equal(y.ModTime) {
			return false
		}
	}
	return true
}

// openIndex returns the folder's index, opening and reconciling it on
// first use.
func (f *Folder) openIndex(ctx context.Context) (*index.Index, error) {
	f.openMu.Lock()
	defer f.openMu.Unlock()

	f.mu.Lock()
	ix := f.ix
	f.mu.Unlock()
	if ix != nil {
		return ix, nil
	}

	ix, err := index.Open(ctx, f.id, f.provider.Dimensions, f.deps.Chunks, f.deps.Vectors)
	if err != nil {
		return nil, err
	}
	repair, err := ix.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.deps.Snapshots.Forget(ctx, f.id, repair.Dropped); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.ix = ix
	f.mu.Unlock()
	return ix, nil
}

// reset drops the index, snapshot and readiness of the folder. The caller
// holds runMu.
func (f *Folder) reset(ctx context.Context) error {
	if err := index.Drop(ctx, f.id, f.deps.Chunks, f.deps.Vectors); err != nil {
		return err
	}
	if err := f.deps.Snapshots.Clear(ctx, f.id); err != nil {
		return err
	}
	if err := f.deps.Folders.ClearSynced(ctx, f.id); err != nil {
		return err
	}
	if err := f.deps.Folders.SetBinding(ctx, f.id, ""); err != nil {
		return err
	}

	f.mu.Lock()
	f.ix = nil
	f.record.Binding = ""
	f.record.LastSyncedAt = nil
	f.state = StateIdle
	f.lastErr = nil
	f.report = nil
	f.files = 0
	f.fp = ""
	f.mu.Unlock()
	return nil
}

// Rebuild drops the folder's index and snapshot and runs a full sync. It
// is the only way out of a configuration error.
func (f *Folder) Rebuild(ctx context.Context) (Report, error) {
	if err := f.invalidate(ctx); err != nil {
		return Report{}, err
	}
	return f.SyncNow(ctx, ModeFull)
}

// invalidate resets the folder so that retrieval reports it as not ready.
func (f *Folder) invalidate(ctx context.Context) error {
	f.runMu.Lock()
	defer f.runMu.Unlock()

	ctx, stop := f.bind(ctx)
	defer stop()
	ctx = contextutil.WithLogger(ctx, f.logger)

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "invalidating index")
	return f.reset(ctx)
}

// Run is the folder's worker loop. It starts a watcher on the root, runs
// an initial full sync, then serves triggers until ctx ends or the folder
// is stopped. Without a working watcher it rescans every RescanInterval;
// while degraded it checks the root at the same interval.
func (f *Folder) Run(ctx context.Context) error {
	defer close(f.done)

	ctx, stop := f.bind(ctx)
	defer stop()
	ctx = contextutil.WithLogger(ctx, f.logger)

	var (
		w      *watcher.Watcher
		events <-chan []watcher.FileEvent
		errs   <-chan error
	)
	startWatch := func() {
		if f.opts.DisableWatch || w != nil {
			return
		}
		nw, err := watcher.New(f.scanner.Root(), f.opts.Watch)
		if err != nil {
			f.logger.WarnContext(ctx, "failed to create watcher", "error", err)
			return
		}
		w, events, errs = nw, nw.Events(), nw.Errors()
		go func() {
			if err := nw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				f.logger.WarnContext(ctx, "watcher stopped", "error", err)
			}
		}()
		f.setWatching(true)
	}
	stopWatch := func() {
		if w != nil {
			w.Close()
		}
		w, events, errs = nil, nil, nil
		f.setWatching(false)
	}
	defer stopWatch()

	startWatch()
	f.Trigger(ModeFull, nil)

	ticker := time.NewTicker(f.opts.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.wake:
		case batch, ok := <-events:
			if !ok {
				stopWatch()
				f.Trigger(ModeFull, nil)
				break
			}
			f.Trigger(ModeIncremental, watcher.Paths(batch))
		case err, ok := <-errs:
			if !ok {
				stopWatch()
				f.Trigger(ModeFull, nil)
				break
			}
			f.logger.WarnContext(ctx, "watcher error", "error", err)
			if errors.Is(err, apperr.ErrRootUnavailable) {
				stopWatch()
				f.Trigger(ModeFull, nil)
			}
		case <-ticker.C:
			switch {
			case f.degraded():
				if f.configError() == nil && f.scanner.CheckRoot() == nil {
					f.logger.InfoContext(ctx, "root is available again")
					startWatch()
					f.Trigger(ModeFull, nil)
				}
			case w == nil:
				startWatch()
				f.Trigger(ModeFull, nil)
			}
		}

		for ctx.Err() == nil {
			req := f.takePending()
			if req == nil {
				break
			}
			if f.configError() != nil {
				continue
			}
			if _, err := f.cycle(ctx, req); err != nil && errors.Is(err, apperr.ErrRootUnavailable) {
				stopWatch()
			}
		}
	}
}

func (f *Folder) setWatching(v bool) {
	f.mu.Lock()
	f.watching = v
	f.mu.Unlock()
}

// start runs the worker loop on g.
func (f *Folder) start(ctx context.Context, g *errgroup.Group) {
	f.mu.Lock()
	f.running = true
	f.mu.Unlock()
	g.Go(func() error {
		return f.Run(ctx)
	})
}

func (f *Folder) started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Stop cancels any running cycle and, if Run was started, waits for it to
// return.
func (f *Folder) Stop() {
	f.cancel()
	f.mu.Lock()
	running := f.running
	f.mu.Unlock()
	if running {
		<-f.done
	}
}

// Status returns the folder's current status.
func (f *Folder) Status(ctx context.Context) Status {
	f.mu.Lock()
	rec := f.record
	st := Status{
		FolderID:     f.id,
		Name:         rec.Name,
		RootPath:     rec.RootPath,
		ProviderID:   rec.ProviderID,
		State:        f.state,
		Health:       health(f.state),
		Ready:        rec.Ready(),
		LastSyncedAt: rec.LastSyncedAt,
		Pending:      f.pending != nil,
		Watching:     f.watching,
		Files:        f.files,
		Fingerprint:  f.fp,
		LastReport:   f.report,
	}
	if f.lastErr != nil {
		st.LastError = f.lastErr.Error()
		st.ErrorCode = apperr.Code(f.lastErr)
	}
	f.mu.Unlock()

	if counts, err := f.deps.Chunks.SourceCounts(ctx, f.id); err == nil {
		for _, n := range counts {
			st.Chunks += n
		}
	}
	return st
}
