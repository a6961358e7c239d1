// Package snapshot tracks the last indexed state of a watched folder: a
// mapping from relative path to content fingerprint.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
	"time"

	"docsync-ai/internal/fingerprint"
	"docsync-ai/internal/storage"
)

// Snapshot maps a forward-slash relative path to its file record.
type Snapshot map[string]storage.FileRecord

// Clone returns a shallow copy that can be mutated independently.
func (s Snapshot) Clone() Snapshot {
	return maps.Clone(s)
}

// Paths returns the snapshot paths in sorted order.
func (s Snapshot) Paths() []string {
	return slices.Sorted(maps.Keys(s))
}

// Stamp sets SyncedAt to at on every entry that is new or differs from
// prev. Unchanged entries keep the time they were first committed.
func (s Snapshot) Stamp(prev Snapshot, at time.Time) {
	for path, rec := range s {
		old, ok := prev[path]
		if ok && old.Fingerprint == rec.Fingerprint && old.Size == rec.Size && old.ModTime.Equal(rec.ModTime) {
			rec.SyncedAt = old.SyncedAt
		} else {
			rec.SyncedAt = at
		}
		s[path] = rec
	}
}

// Fingerprint hashes the sorted (path, fingerprint) pairs. Two snapshots with
// identical content produce identical folder fingerprints.
func (s Snapshot) Fingerprint() fingerprint.Fingerprint {
	h := sha256.New()
	for _, p := range s.Paths() {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(s[p].Fingerprint))
		h.Write([]byte{'\n'})
	}
	return fingerprint.Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Changes is the difference between two snapshots. Paths are sorted.
type Changes struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether there is nothing to apply.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Len returns the total number of changed paths.
func (c Changes) Len() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed)
}

// Diff compares old and new. A path only in new is added, a path in both
// with a different fingerprint is modified, a path only in old is removed.
func Diff(old, new Snapshot) Changes {
	var c Changes
	for path, rec := range new {
		prev, ok := old[path]
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case prev.Fingerprint != rec.Fingerprint:
			c.Modified = append(c.Modified, path)
		}
	}
	for path := range old {
		if _, ok := new[path]; !ok {
			c.Removed = append(c.Removed, path)
		}
	}
	slices.Sort(c.Added)
	slices.Sort(c.Modified)
	slices.Sort(c.Removed)
	return c
}
