package linker

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/cinesync/internal/naming"
)

type fixture struct {
	watch  string
	target string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	root := t.TempDir()
	f := fixture{
		watch:  filepath.Join(root, "watch"),
		target: filepath.Join(root, "library"),
	}
	require.NoError(t, os.MkdirAll(f.watch, 0755))
	require.NoError(t, os.MkdirAll(f.target, 0755))
	return f
}

func (f fixture) source(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.watch, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	return path
}

func (f fixture) movieTarget(source, folder, file string) naming.LinkTarget {
	return naming.LinkTarget{
		Root:       f.target,
		FolderPath: filepath.Join(f.target, folder),
		FileName:   file,
		SourcePath: source,
		Verified:   true,
	}
}

func TestEnsure_CreatesThenUnchanged(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Batman.Begins.2005.1080p.BluRay.x264.mkv")
	target := f.movieTarget(src, "Batman Begins (2005) {imdb-tt0372784}", "Batman Begins (2005).mkv")

	m := NewManager()
	action, err := m.Ensure(target)
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)

	dest, err := os.Readlink(target.LinkPath())
	require.NoError(t, err)
	assert.Equal(t, src, dest)

	action, err = m.Ensure(target)
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, action)

	entries, err := os.ReadDir(target.FolderPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsure_ReplacesLinkToMissingSource(t *testing.T) {
	f := newFixture(t)
	oldSrc := filepath.Join(f.watch, "gone.mkv")
	newSrc := f.source(t, "Heat.1995.mkv")
	target := f.movieTarget(newSrc, "Heat (1995)", "Heat (1995).mkv")

	require.NoError(t, os.MkdirAll(target.FolderPath, 0755))
	require.NoError(t, os.Symlink(oldSrc, target.LinkPath()))

	action, err := NewManager().Ensure(target)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)
	assert.True(t, Points(target.LinkPath(), newSrc))

	entries, err := os.ReadDir(target.FolderPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary link must not be left behind")
}

func TestEnsure_ConflictKeepsExistingLink(t *testing.T) {
	f := newFixture(t)
	existing := f.source(t, "Heat.1995.REMUX.mkv")
	other := f.source(t, "Heat.1995.720p.mkv")
	target := f.movieTarget(other, "Heat (1995)", "Heat (1995).mkv")

	require.NoError(t, os.MkdirAll(target.FolderPath, 0755))
	require.NoError(t, os.Symlink(existing, target.LinkPath()))

	_, err := NewManager().Ensure(target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, Points(target.LinkPath(), existing))
}

func TestEnsure_NeverOverwritesRegularFile(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Heat.1995.mkv")
	target := f.movieTarget(src, "Heat (1995)", "Heat (1995).mkv")

	require.NoError(t, os.MkdirAll(target.FolderPath, 0755))
	require.NoError(t, os.WriteFile(target.LinkPath(), []byte("user data"), 0644))

	_, err := NewManager().Ensure(target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLinkCreationFailed))

	data, err := os.ReadFile(target.LinkPath())
	require.NoError(t, err)
	assert.Equal(t, "user data", string(data))
}

func TestEnsure_FolderCreationFails(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Heat.1995.mkv")

	blocker := filepath.Join(f.target, "Heat (1995)")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := NewManager().Ensure(f.movieTarget(src, "Heat (1995)", "Heat (1995).mkv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLinkCreationFailed))
}

func TestEnsure_DryRun(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Heat.1995.mkv")
	target := f.movieTarget(src, "Heat (1995)", "Heat (1995).mkv")

	m := NewManager(WithDryRun(true))
	assert.True(t, m.DryRun())

	action, err := m.Ensure(target)
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.NoDirExists(t, target.FolderPath)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Heat.1995.mkv")
	target := f.movieTarget(src, "Heat (1995)", "Heat (1995).mkv")

	m := NewManager()
	_, err := m.Ensure(target)
	require.NoError(t, err)

	require.NoError(t, m.Remove(target.LinkPath(), f.target))
	assert.NoDirExists(t, target.FolderPath)
	assert.DirExists(t, f.target)
	assert.FileExists(t, src, "sources are never touched")

	assert.NoError(t, m.Remove(target.LinkPath(), f.target), "removing a missing link is a no-op")

	require.NoError(t, os.WriteFile(filepath.Join(f.target, "notes.txt"), nil, 0644))
	assert.Error(t, m.Remove(filepath.Join(f.target, "notes.txt"), f.target))
}

func TestRemoveStale(t *testing.T) {
	f := newFixture(t)
	ep1 := f.source(t, "Dark.S01E01.mkv")
	ep2 := f.source(t, "Dark.S01E02.mkv")
	movie := f.source(t, "Heat.1995.mkv")

	m := NewManager()
	season := filepath.Join("Dark (2017)", "Season 01")
	for _, tgt := range []naming.LinkTarget{
		f.movieTarget(ep1, season, "Dark - S01E01.mkv"),
		f.movieTarget(ep2, season, "Dark - S01E02.mkv"),
		f.movieTarget(movie, "Heat (1995)", "Heat (1995).mkv"),
	} {
		_, err := m.Ensure(tgt)
		require.NoError(t, err)
	}

	// A dangling link that does not point into the watch dir is not ours.
	foreign := filepath.Join(f.target, "foreign.mkv")
	require.NoError(t, os.Symlink("/nonexistent/elsewhere.mkv", foreign))

	roots := []Root{{Target: f.target, Watch: []string{f.watch}}}

	removed, err := m.RemoveStale(roots)
	require.NoError(t, err)
	assert.Empty(t, removed, "nothing is stale while sources exist")

	require.NoError(t, os.Remove(ep1))
	removed, err = m.RemoveStale(roots)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.target, season, "Dark - S01E01.mkv")}, removed)
	assert.DirExists(t, filepath.Join(f.target, season))

	require.NoError(t, os.Remove(ep2))
	removed, err = m.RemoveStale(roots)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.NoDirExists(t, filepath.Join(f.target, "Dark (2017)"))
	assert.DirExists(t, filepath.Join(f.target, "Heat (1995)"))
	assert.DirExists(t, f.target)

	_, err = os.Lstat(foreign)
	assert.NoError(t, err, "foreign links are left alone")
}

func TestRemoveStale_DryRun(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "Heat.1995.mkv")
	target := f.movieTarget(src, "Heat (1995)", "Heat (1995).mkv")

	_, err := NewManager().Ensure(target)
	require.NoError(t, err)
	require.NoError(t, os.Remove(src))

	removed, err := NewManager(WithDryRun(true)).RemoveStale([]Root{{Target: f.target, Watch: []string{f.watch}}})
	require.NoError(t, err)
	assert.Equal(t, []string{target.LinkPath()}, removed)

	_, err = os.Lstat(target.LinkPath())
	assert.NoError(t, err, "dry run leaves the link in place")
}

func TestRemoveStale_MissingTargetRoot(t *testing.T) {
	f := newFixture(t)
	removed, err := NewManager().RemoveStale([]Root{{Target: filepath.Join(f.target, "absent"), Watch: []string{f.watch}}})
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
