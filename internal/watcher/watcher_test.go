package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync-ai/internal/apperr"
)

func startWatcher(t *testing.T, root string) (*Watcher, chan error) {
	t.Helper()
	w, err := New(root, Options{DebounceWindow: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give Run time to register the watches.
	time.Sleep(100 * time.Millisecond)
	return w, done
}

func collect(t *testing.T, w *Watcher, want string) []FileEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	var all []FileEvent
	for {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				return all
			}
			all = append(all, batch...)
			for _, e := range batch {
				if e.Path == want {
					return all
				}
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event on %s, got %v", want, all)
		}
	}
}

func TestWatcher_CreateFile(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	events := collect(t, w, "a.txt")
	assert.Contains(t, Paths(events), "a.txt")
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	collect(t, w, "sub")

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0644))
	events := collect(t, w, "sub/b.txt")
	assert.Contains(t, Paths(events), "sub/b.txt")
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "seen.txt"), []byte("x"), 0644))

	events := collect(t, w, "seen.txt")
	assert.NotContains(t, Paths(events), ".hidden")
}

func TestWatcher_RenameBecomesDelete(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.txt"), []byte("x"), 0644))
	w, _ := startWatcher(t, root)

	require.NoError(t, os.Rename(filepath.Join(root, "old.txt"), filepath.Join(root, "new.txt")))

	events := collect(t, w, "old.txt")
	for _, e := range events {
		if e.Path == "old.txt" {
			assert.Equal(t, OpDelete, e.Operation)
		}
	}
}

func TestWatcher_RootRemoved(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "watched")
	require.NoError(t, os.MkdirAll(root, 0755))
	w, done := startWatcher(t, root)

	require.NoError(t, os.RemoveAll(root))

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, apperr.ErrRootUnavailable), "got %v", err)
		done <- err
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report root removal")
	}
	_ = w
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	require.NoError(t, err)

	err = w.Run(context.Background())
	assert.ErrorIs(t, err, apperr.ErrRootUnavailable)
}
