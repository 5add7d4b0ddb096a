package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []FileEvent
}

func (h *recordingHandler) HandleFileEvent(event FileEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) has(typ EventType, path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e.Type == typ && e.Path == path {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, dir string) *recordingHandler {
	t.Helper()
	handler := &recordingHandler{}
	w, err := NewWatcher(handler)
	require.NoError(t, err)
	require.NoError(t, w.Watch([]string{dir}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		w.Close()
		<-done
	})
	return handler
}

func TestWatch_SkipsDotDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Dark", "Season 1"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".partial"), 0755))

	w, err := NewWatcher(&recordingHandler{})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch([]string{root}))
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "Dark"),
		filepath.Join(root, "Dark", "Season 1"),
	}, w.WatchList())
}

func TestWatch_MissingRoot(t *testing.T) {
	w, err := NewWatcher(&recordingHandler{})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Watch([]string{filepath.Join(t.TempDir(), "missing")}))
}

func TestStart_ReportsMediaFiles(t *testing.T) {
	root := t.TempDir()
	handler := startWatcher(t, root)

	movie := filepath.Join(root, "Heat.1995.mkv")
	require.NoError(t, os.WriteFile(movie, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Heat.1995.nfo"), []byte("x"), 0644))

	assert.Eventually(t, func() bool { return handler.has(EventCreate, movie) }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(movie))
	assert.Eventually(t, func() bool { return handler.has(EventDelete, movie) }, 2*time.Second, 20*time.Millisecond)

	assert.False(t, handler.has(EventCreate, filepath.Join(root, "Heat.1995.nfo")))
}

func TestStart_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	handler := startWatcher(t, root)

	// Build the directory elsewhere and move it in, the way a download
	// client finishes a season pack.
	staging := t.TempDir()
	season := filepath.Join(staging, "Dark.S01")
	require.NoError(t, os.MkdirAll(season, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(season, "Dark.S01E01.mkv"), []byte("x"), 0644))

	moved := filepath.Join(root, "Dark.S01")
	require.NoError(t, os.Rename(season, moved))

	existing := filepath.Join(moved, "Dark.S01E01.mkv")
	assert.Eventually(t, func() bool { return handler.has(EventCreate, existing) }, 2*time.Second, 20*time.Millisecond)

	later := filepath.Join(moved, "Dark.S01E02.mkv")
	assert.Eventually(t, func() bool {
		// The watch on the new directory may be added just after the rename.
		os.WriteFile(later, []byte("x"), 0644)
		return handler.has(EventCreate, later) || handler.has(EventWrite, later)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want EventType
		ok   bool
	}{
		{fsnotify.Create, EventCreate, true},
		{fsnotify.Write, EventWrite, true},
		{fsnotify.Create | fsnotify.Write, EventCreate, true},
		{fsnotify.Rename, EventMove, true},
		{fsnotify.Remove, EventDelete, true},
		{fsnotify.Chmod, "", false},
	}
	for _, tt := range tests {
		got, ok := classify(tt.op)
		assert.Equal(t, tt.want, got, tt.op.String())
		assert.Equal(t, tt.ok, ok, tt.op.String())
	}
}

func TestHandleEvent_IgnoresSamplesAndExtras(t *testing.T) {
	root := t.TempDir()
	handler := &recordingHandler{}
	w, err := NewWatcher(handler)
	require.NoError(t, err)
	defer w.Close()

	movie := filepath.Join(root, "Movie.Name.2005.mkv")
	sample := filepath.Join(root, "Sample", "sample-movie.name.2005.mkv")
	trailer := filepath.Join(root, "Movie.Name.2005.Trailer.mkv")
	for _, path := range []string{movie, sample, trailer} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}))
	}

	assert.True(t, handler.has(EventCreate, movie))
	assert.False(t, handler.has(EventCreate, sample))
	assert.False(t, handler.has(EventCreate, trailer))

	// Removals are always forwarded so stale links get cleaned up.
	require.NoError(t, w.handleEvent(fsnotify.Event{Name: sample, Op: fsnotify.Remove}))
	assert.True(t, handler.has(EventDelete, sample))
}
