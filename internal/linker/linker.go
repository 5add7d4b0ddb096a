// Package linker maintains the symlink tree inside the target libraries.
//
// Links are created with MkdirAll + Symlink, replaced by creating a
// temporary link next to the old one and renaming it over, and removed
// when their source disappears. Source files are never touched.
package linker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/naming"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

var (
	// ErrLinkCreationFailed is returned when a link cannot be written or a
	// non-link entry already occupies the link path.
	ErrLinkCreationFailed = errors.New("link creation failed")

	// ErrConflict is returned when the link path already points at another
	// source that still exists.
	ErrConflict = errors.New("link conflict")
)

// Action describes what Ensure did.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

type Manager struct {
	dryRun  bool
	dirMode os.FileMode
	logger  *logging.Logger
}

func NewManager(options ...func(*Manager)) *Manager {
	m := &Manager{
		dirMode: 0755,
		logger:  logging.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// WithDryRun reports actions without touching the filesystem
func WithDryRun(dryRun bool) func(*Manager) {
	return func(m *Manager) {
		m.dryRun = dryRun
	}
}

func WithLogger(logger *logging.Logger) func(*Manager) {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// DryRun reports whether the manager only simulates changes.
func (m *Manager) DryRun() bool {
	return m.dryRun
}

// Ensure makes target.LinkPath() a symlink to target.SourcePath.
func (m *Manager) Ensure(target naming.LinkTarget) (Action, error) {
	return m.ensure(target, true)
}

func (m *Manager) ensure(target naming.LinkTarget, retry bool) (Action, error) {
	linkPath := target.LinkPath()
	source := target.SourcePath

	info, err := os.Lstat(linkPath)
	if errors.Is(err, os.ErrNotExist) {
		if m.dryRun {
			m.logger.Info("linker", "would create link", logging.F("link", linkPath), logging.F("source", source))
			return ActionCreated, nil
		}
		if err := os.MkdirAll(target.FolderPath, m.dirMode); err != nil {
			return "", fmt.Errorf("%w: creating %s: %v", ErrLinkCreationFailed, target.FolderPath, err)
		}
		if err := os.Symlink(source, linkPath); err != nil {
			if retry && errors.Is(err, os.ErrExist) {
				// Another process created it between Lstat and Symlink.
				return m.ensure(target, false)
			}
			return "", fmt.Errorf("%w: %v", ErrLinkCreationFailed, err)
		}
		m.logger.Info("linker", "created link", logging.F("link", linkPath), logging.F("source", source))
		return ActionCreated, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: inspecting %s: %v", ErrLinkCreationFailed, linkPath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", fmt.Errorf("%w: %s exists and is not a symlink", ErrLinkCreationFailed, linkPath)
	}

	current, err := os.Readlink(linkPath)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrLinkCreationFailed, linkPath, err)
	}
	current = resolveLink(linkPath, current)
	if current == filepath.Clean(source) {
		return ActionUnchanged, nil
	}

	if _, err := os.Stat(current); err == nil {
		return "", fmt.Errorf("%w: %s already links to %s", ErrConflict, linkPath, current)
	}

	if m.dryRun {
		m.logger.Info("linker", "would replace link", logging.F("link", linkPath), logging.F("old", current), logging.F("source", source))
		return ActionUpdated, nil
	}
	if err := replaceLink(linkPath, source); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLinkCreationFailed, err)
	}
	m.logger.Info("linker", "replaced link", logging.F("link", linkPath), logging.F("old", current), logging.F("source", source))
	return ActionUpdated, nil
}

// replaceLink swaps the entry at linkPath for a link to source in a single
// rename, so readers never observe a missing or partial link.
func replaceLink(linkPath, source string) error {
	tmp := filepath.Join(filepath.Dir(linkPath),
		"."+filepath.Base(linkPath)+".cinesync-"+strconv.Itoa(os.Getpid())+"-"+strconv.FormatInt(time.Now().UnixNano(), 36))
	if err := os.Symlink(source, tmp); err != nil {
		return fmt.Errorf("creating temporary link: %w", err)
	}
	if err := os.Rename(tmp, linkPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temporary link: %w", err)
	}
	return nil
}

// Remove deletes the symlink at linkPath and prunes directories it leaves
// empty, stopping at root. Anything other than a symlink is left alone.
func (m *Manager) Remove(linkPath, root string) error {
	info, err := os.Lstat(linkPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("refusing to remove %s: not a symlink", linkPath)
	}

	if m.dryRun {
		m.logger.Info("linker", "would remove link", logging.F("link", linkPath))
		return nil
	}
	if err := os.Remove(linkPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	m.logger.Info("linker", "removed link", logging.F("link", linkPath))
	pruneEmpty(filepath.Dir(linkPath), root)
	return nil
}

// Points reports whether linkPath is a symlink that resolves to source.
func Points(linkPath, source string) bool {
	current, err := os.Readlink(linkPath)
	if err != nil {
		return false
	}
	return resolveLink(linkPath, current) == filepath.Clean(source)
}

func resolveLink(linkPath, dest string) string {
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(linkPath), dest)
	}
	return filepath.Clean(dest)
}

// pruneEmpty removes dir and its parents while they are empty, never
// removing root itself or anything outside it.
func pruneEmpty(dir, root string) {
	root = filepath.Clean(root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !paths.Within(root, dir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
