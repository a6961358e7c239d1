package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/fingerprint"
	"docsync-ai/internal/index"
	"docsync-ai/internal/snapshot"
)

// errNoChunks marks a file whose extracted text produced no chunks.
var errNoChunks = errors.New("no chunks")

// fatal reports whether err must stop the whole cycle instead of failing
// a single file.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, apperr.ErrConfig)
}

// apply brings the index in line with changes and returns the snapshot to
// commit. Files that failed keep their previous snapshot entry (or stay
// absent) so the next cycle retries them. Skipped files are not recorded.
func (f *Folder) apply(ctx context.Context, ix *index.Index, prev, cur snapshot.Snapshot, changes snapshot.Changes, report *Report) (snapshot.Snapshot, error) {
	logger := contextutil.LoggerFromContext(ctx)

	next := cur.Clone()
	revert := func(path string) {
		if old, ok := prev[path]; ok {
			next[path] = old
		} else {
			delete(next, path)
		}
	}

	added := make(map[string]bool, len(changes.Added))
	byFingerprint := make(map[string][]string)
	for _, p := range changes.Added {
		added[p] = true
		fp := cur[p].Fingerprint
		byFingerprint[fp] = append(byFingerprint[fp], p)
	}

	// A removed file whose content reappeared under a new path is a rename:
	// its chunks are relabelled without embedding.
	var removed []string
	for _, from := range changes.Removed {
		fp := prev[from].Fingerprint
		if candidates := byFingerprint[fp]; len(candidates) > 0 {
			to := candidates[0]
			byFingerprint[fp] = candidates[1:]

			moved, err := f.relabel(ctx, ix, from, to)
			if err != nil {
				if fatal(ctx, err) {
					return nil, err
				}
				logger.WarnContext(ctx, "failed to relabel renamed file", "from", from, "to", to, "error", err)
				report.fail(to, err)
				revert(to)
				next[from] = prev[from]
				delete(added, to)
				continue
			}
			if moved {
				logger.DebugContext(ctx, "relabelled renamed file", "from", from, "to", to)
				report.Renamed++
				delete(added, to)
				continue
			}
		}
		removed = append(removed, from)
	}

	// Vectors of removed files can serve identical chunks elsewhere.
	pool := make(map[string][]float32)
	for _, path := range removed {
		existing, err := ix.Existing(ctx, path)
		if err == nil {
			for _, c := range existing {
				pool[c.ContentHash] = c.Vector
			}
		}
		if _, err := ix.DeleteBySource(ctx, path); err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			report.fail(path, err)
			next[path] = prev[path]
			continue
		}
		report.Removed++
	}

	paths := make([]string, 0, len(added)+len(changes.Modified))
	for p := range added {
		paths = append(paths, p)
	}
	paths = append(paths, changes.Modified...)
	sort.Strings(paths)

	for _, path := range paths {
		err := f.indexFile(ctx, ix, path, pool, report)
		switch {
		case err == nil:
			if added[path] {
				report.Added++
			} else {
				report.Modified++
			}
		case errors.Is(err, errNoChunks), errors.Is(err, apperr.ErrUnsupportedType):
			logger.DebugContext(ctx, "skipping file", "rel_path", path, "reason", err)
			report.Skipped++
			delete(next, path)
		case fatal(ctx, err):
			return nil, err
		default:
			logger.WarnContext(ctx, "failed to index file", "rel_path", path, "error", err)
			report.fail(path, err)
			revert(path)
		}
	}

	return next, nil
}

// indexFile loads, chunks and indexes one file. Only chunks whose content
// changed are embedded; chunk IDs beyond the new chunk count are deleted.
func (f *Folder) indexFile(ctx context.Context, ix *index.Index, path string, pool map[string][]float32, report *Report) error {
	doc, err := f.deps.Loader.Load(ctx, filepath.Join(f.scanner.Root(), filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupportedType) {
			if _, derr := ix.DeleteBySource(ctx, path); derr != nil {
				return derr
			}
		}
		return err
	}

	chunks := f.deps.Chunker.Chunk(doc.Text)
	if len(chunks) == 0 {
		if _, err := ix.DeleteBySource(ctx, path); err != nil {
			return err
		}
		return errNoChunks
	}

	existing, err := ix.Existing(ctx, path)
	if err != nil {
		return err
	}
	own := make(map[string][]float32, len(existing))
	for _, c := range existing {
		own[c.ContentHash] = c.Vector
	}

	var entries []index.Entry
	var pending []int
	for _, c := range chunks {
		hash := fingerprint.Text(c.Text).String()
		if old, ok := existing[c.Ordinal]; ok && old.ContentHash == hash && len(old.Vector) == ix.Dimensions() {
			continue
		}

		e := index.Entry{RelPath: path, Ordinal: c.Ordinal, Text: c.Text, ContentHash: hash}
		if vec, ok := own[hash]; ok && len(vec) == ix.Dimensions() {
			e.Vector = vec
			report.Reused++
		} else if vec, ok := pool[hash]; ok && len(vec) == ix.Dimensions() {
			e.Vector = vec
			report.Reused++
		} else {
			pending = append(pending, len(entries))
		}
		entries = append(entries, e)
	}

	// Chunks that embedded are kept even when others failed; the error
	// still fails the file so that the next cycle embeds the rest.
	var embedErr error
	failed := make(map[int]bool)
	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for i, idx := range pending {
			texts[i] = entries[idx].Text
		}

		res, err := f.batch.EmbedAll(ctx, texts)
		report.Calls += res.Calls
		if err != nil {
			return err
		}
		first := len(texts)
		for i, idx := range pending {
			if _, ok := res.Failed[i]; ok {
				failed[entries[idx].Ordinal] = true
				first = min(first, i)
				continue
			}
			entries[idx].Vector = res.Vectors[i]
		}
		report.Embedded += len(pending) - len(res.Failed)
		if len(res.Failed) > 0 {
			embedErr = fmt.Errorf("%d of %d chunks failed to embed: %w", len(res.Failed), len(texts), res.Failed[first])
		}
	}

	ready := entries[:0]
	for _, e := range entries {
		if !failed[e.Ordinal] {
			ready = append(ready, e)
		}
	}
	if err := ix.Upsert(ctx, ready); err != nil {
		return err
	}

	// Trailing chunks are gone; an old chunk whose replacement failed to
	// embed is out of date.
	var stale []string
	for ordinal, c := range existing {
		if ordinal >= len(chunks) || failed[ordinal] {
			stale = append(stale, c.ID)
		}
	}
	sort.Strings(stale)
	if err := ix.DeleteChunks(ctx, stale); err != nil {
		return err
	}
	return embedErr
}

// relabel moves the chunks of from to to, keeping texts and vectors. It
// returns false when from has no chunks to move.
func (f *Folder) relabel(ctx context.Context, ix *index.Index, from, to string) (bool, error) {
	existing, err := ix.Existing(ctx, from)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}

	entries := make([]index.Entry, 0, len(existing))
	for _, c := range existing {
		entries = append(entries, index.Entry{
			RelPath:     to,
			Ordinal:     c.Ordinal,
			Text:        c.Text,
			ContentHash: c.ContentHash,
			Vector:      c.Vector,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ordinal < entries[j].Ordinal })

	if err := ix.Upsert(ctx, entries); err != nil {
		return false, err
	}
	if _, err := ix.DeleteBySource(ctx, from); err != nil {
		return false, err
	}
	return true, nil
}
