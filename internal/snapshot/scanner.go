package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/fingerprint"
	"docsync-ai/internal/storage"
)

// Filter reports whether a path (relative, forward slashes) takes part in the
// snapshot. Directories that are rejected are not descended into.
type Filter func(relPath string, isDir bool) bool

// ScanResult is the outcome of scanning a folder tree.
type ScanResult struct {
	Snapshot Snapshot
	Hashed   int              // Files whose content was hashed
	Failed   map[string]error // Files that could not be read; previous entries are kept
}

// Scanner builds a current snapshot of a folder tree.
type Scanner struct {
	root   string
	filter Filter
}

// NewScanner creates a scanner for root. A nil filter accepts every path.
func NewScanner(root string, filter Filter) *Scanner {
	if filter == nil {
		filter = func(string, bool) bool { return true }
	}
	return &Scanner{root: root, filter: filter}
}

// Root returns the folder root being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// CheckRoot returns apperr.ErrRootUnavailable if the root is missing or not a directory.
func (s *Scanner) CheckRoot() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperr.ErrRootUnavailable, s.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperr.ErrRootUnavailable, s.root)
	}
	return nil
}

// ScanAll walks the whole tree. Fingerprints from prev are reused when size
// and modification time still match, so unchanged files are not re-read.
func (s *Scanner) ScanAll(ctx context.Context, prev Snapshot) (ScanResult, error) {
	if err := s.CheckRoot(); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Snapshot: make(Snapshot, len(prev)), Failed: make(map[string]error)}
	if err := s.walk(ctx, s.root, prev, &res); err != nil {
		return ScanResult{}, err
	}
	return res, nil
}

// ScanPaths rescans only the given relative paths on top of prev. A path that
// no longer exists is dropped along with everything beneath it; a path that
// is now a directory is walked.
func (s *Scanner) ScanPaths(ctx context.Context, prev Snapshot, paths []string) (ScanResult, error) {
	if err := s.CheckRoot(); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Snapshot: prev.Clone(), Failed: make(map[string]error)}
	if res.Snapshot == nil {
		res.Snapshot = make(Snapshot)
	}

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}
		rel = strings.Trim(filepath.ToSlash(rel), "/")
		if rel == "" || rel == "." {
			return s.ScanAll(ctx, prev)
		}

		removeTree(res.Snapshot, rel)
		abs := filepath.Join(s.root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.keepPrevious(&res, prev, rel, err)
			continue
		}
		if info.IsDir() {
			if !s.filter(rel, true) {
				continue
			}
			if err := s.walk(ctx, abs, prev, &res); err != nil {
				return ScanResult{}, err
			}
			continue
		}
		if !info.Mode().IsRegular() || !s.filter(rel, false) {
			continue
		}
		s.record(&res, prev, rel, abs, info)
	}
	return res, nil
}

func (s *Scanner) walk(ctx context.Context, dir string, prev Snapshot, res *ScanResult) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, relErr)
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if path == s.root {
				return fmt.Errorf("%w: %v", apperr.ErrRootUnavailable, err)
			}
			// Unreadable entry: keep what we knew about it and move on.
			s.keepPrevious(res, prev, rel, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != s.root && !s.filter(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.filter(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.keepPrevious(res, prev, rel, err)
			return nil
		}
		s.record(res, prev, rel, path, info)
		return nil
	})
}

func (s *Scanner) record(res *ScanResult, prev Snapshot, rel, abs string, info fs.FileInfo) {
	if old, ok := prev[rel]; ok && old.Size == info.Size() && old.ModTime.Equal(info.ModTime()) {
		res.Snapshot[rel] = old
		return
	}

	fp, err := fingerprint.File(abs)
	if err != nil {
		s.keepPrevious(res, prev, rel, err)
		return
	}
	res.Hashed++
	res.Snapshot[rel] = storage.FileRecord{
		RelPath:     rel,
		Fingerprint: fp.String(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}
}

// keepPrevious records a read failure. A file that vanished between listing
// and hashing is simply absent; any other failure keeps the last known
// entries for the path (and beneath it) so they are not treated as removed.
func (s *Scanner) keepPrevious(res *ScanResult, prev Snapshot, rel string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	res.Failed[rel] = fmt.Errorf("%w: %s: %v", apperr.ErrRead, rel, err)
	prefix := rel + "/"
	for p, old := range prev {
		if p == rel || strings.HasPrefix(p, prefix) {
			res.Snapshot[p] = old
		}
	}
}

func removeTree(snap Snapshot, rel string) {
	delete(snap, rel)
	prefix := rel + "/"
	for p := range snap {
		if strings.HasPrefix(p, prefix) {
			delete(snap, p)
		}
	}
}
