// Package scanner discovers media files in the watch directories and
// schedules the periodic reconcile cycle of watch mode.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/naming"
)

// State is the lifecycle of a one-shot scan
type State int

const (
	StateIdle State = iota
	StateScanning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Scanner walks the watch directories of the configured libraries
type Scanner struct {
	libraries []config.Library
	logger    *logging.Logger

	mu    sync.Mutex
	state State
}

func New(libraries []config.Library, options ...func(*Scanner)) *Scanner {
	s := &Scanner{
		libraries: libraries,
		logger:    logging.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func WithLogger(logger *logging.Logger) func(*Scanner) {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// State returns where the scanner is in its lifecycle.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scanner) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Scan walks every watch directory and returns one candidate per media
// file, sorted by path. Dot-directories are not entered. Unreadable
// subdirectories are logged and skipped; an unreadable watch root is
// reported in the returned error alongside the candidates that were found.
func (s *Scanner) Scan(ctx context.Context) ([]naming.MediaCandidate, error) {
	s.setState(StateScanning)
	defer s.setState(StateDone)

	seen := make(map[string]struct{})
	var candidates []naming.MediaCandidate
	var errs []error

	for _, lib := range s.libraries {
		s.logger.Debug("scanner", "scanning watch directory",
			logging.F("library", lib.Name), logging.F("path", lib.Watch))

		found, err := s.scanLibrary(ctx, lib)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			s.logger.Error("scanner", "watch directory scan failed", err, logging.F("path", lib.Watch))
			errs = append(errs, fmt.Errorf("%s watch directory %s: %w", lib.Name, lib.Watch, err))
		}

		for _, c := range found {
			if _, dup := seen[c.SourcePath]; dup {
				continue
			}
			seen[c.SourcePath] = struct{}{}
			candidates = append(candidates, c)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].SourcePath < candidates[j].SourcePath
	})

	s.logger.Info("scanner", "scan complete", logging.F("candidates", len(candidates)))
	return candidates, errors.Join(errs...)
}

func (s *Scanner) scanLibrary(ctx context.Context, lib config.Library) ([]naming.MediaCandidate, error) {
	var found []naming.MediaCandidate

	err := filepath.WalkDir(lib.Watch, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if path == lib.Watch {
				return walkErr
			}
			s.logger.Warn("scanner", "directory inaccessible during scan",
				logging.F("path", path),
				logging.F("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != lib.Watch && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		size := int64(-1)
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		if !naming.IsCandidate(path, size) {
			if naming.IsMediaFile(path) {
				s.logger.Debug("scanner", "ignoring sample or extra", logging.F("path", path))
			}
			return nil
		}

		found = append(found, naming.NewCandidate(path, lib.Kind))
		return nil
	})

	return found, err
}
