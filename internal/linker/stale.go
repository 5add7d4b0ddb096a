package linker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

// Root is a target library together with the watch directories whose
// files it links to. Only links into Watch are considered ours.
type Root struct {
	Target string
	Watch  []string
}

// RemoveStale removes every link under the target roots that points into a
// watch directory at a source that no longer exists, then prunes the
// folders left empty. It returns the removed link paths. Errors on single
// entries do not stop the pass; they are joined into the returned error.
func (m *Manager) RemoveStale(roots []Root) ([]string, error) {
	var removed []string
	var errs []error

	for _, root := range roots {
		if root.Target == "" {
			continue
		}
		if _, err := os.Stat(root.Target); errors.Is(err, os.ErrNotExist) {
			continue
		}

		stale, err := m.findStale(root)
		if err != nil {
			errs = append(errs, err)
		}

		dirs := make(map[string]struct{})
		for _, link := range stale {
			if m.dryRun {
				m.logger.Info("linker", "would remove stale link", logging.F("link", link))
				removed = append(removed, link)
				continue
			}
			if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("removing %s: %w", link, err))
				continue
			}
			m.logger.Info("linker", "removed stale link", logging.F("link", link))
			removed = append(removed, link)
			dirs[filepath.Dir(link)] = struct{}{}
		}

		// Deepest first so a season folder goes before its show folder.
		ordered := make([]string, 0, len(dirs))
		for d := range dirs {
			ordered = append(ordered, d)
		}
		sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
		for _, d := range ordered {
			pruneEmpty(d, root.Target)
		}
	}

	return removed, errors.Join(errs...)
}

func (m *Manager) findStale(root Root) ([]string, error) {
	var stale []string
	var errs []error

	walkErr := filepath.WalkDir(root.Target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root.Target {
				return err
			}
			errs = append(errs, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		dest, err := os.Readlink(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		dest = resolveLink(path, dest)
		if !withinAny(root.Watch, dest) {
			return nil
		}
		if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
			stale = append(stale, path)
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return stale, errors.Join(errs...)
}

func withinAny(roots []string, path string) bool {
	for _, r := range roots {
		if paths.Within(r, path) {
			return true
		}
	}
	return false
}
