// Package watcher turns fsnotify events under the watch directories into
// media file events.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/naming"
)

type EventType string

const (
	EventCreate EventType = "create"
	EventWrite  EventType = "write"
	EventMove   EventType = "move"
	EventDelete EventType = "delete"
)

type FileEvent struct {
	Type EventType
	Path string
}

type Handler interface {
	HandleFileEvent(event FileEvent) error
}

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *logging.Logger
}

type Option func(*Watcher)

func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWatcher(handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logging.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch adds every path and the directories below it.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.addRecursive(path); err != nil {
			return err
		}
	}
	return nil
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.fsWatcher.WatchList()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("unable to watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("unable to watch %s: %w", path, err)
		}
		w.logger.Debug("watcher", "watching", logging.F("path", path))
		return nil
	})
}

// Start delivers events to the handler until ctx is cancelled or the
// underlying watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.dispatch(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("watcher", "watch error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) dispatch(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				w.addDirectory(event.Name)
			}
			return
		}
	}

	if err := w.handleEvent(event); err != nil {
		w.logger.Error("watcher", "error handling event", err, logging.F("path", event.Name))
	}
}

// addDirectory watches a directory that appeared after startup and reports
// the media files already inside it, which were moved in or written before
// the watch was in place.
func (w *Watcher) addDirectory(dir string) {
	if err := w.addRecursive(dir); err != nil {
		w.logger.Error("watcher", "unable to watch new directory", err, logging.F("path", dir))
		return
	}
	w.logger.Info("watcher", "now watching new directory", logging.F("path", dir))

	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		size := int64(-1)
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		if naming.IsCandidate(path, size) {
			if err := w.handler.HandleFileEvent(FileEvent{Type: EventCreate, Path: path}); err != nil {
				w.logger.Error("watcher", "error handling event", err, logging.F("path", path))
			}
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) error {
	eventType, ok := classify(event.Op)
	if !ok {
		return nil
	}

	// Removed or renamed directories cannot be stat'ed any more, so every
	// removal is forwarded; creations and writes only for media files that
	// are not samples or extras.
	if eventType == EventCreate || eventType == EventWrite {
		size := int64(-1)
		if info, err := os.Stat(event.Name); err == nil {
			size = info.Size()
		}
		if !naming.IsCandidate(event.Name, size) {
			return nil
		}
	}

	w.logger.Debug("watcher", "event", logging.F("type", string(eventType)), logging.F("path", event.Name))

	return w.handler.HandleFileEvent(FileEvent{
		Type: eventType,
		Path: event.Name,
	})
}

func classify(op fsnotify.Op) (EventType, bool) {
	switch {
	case op&fsnotify.Remove == fsnotify.Remove:
		return EventDelete, true
	case op&fsnotify.Rename == fsnotify.Rename:
		return EventMove, true
	case op&fsnotify.Create == fsnotify.Create:
		return EventCreate, true
	case op&fsnotify.Write == fsnotify.Write:
		return EventWrite, true
	}
	return "", false
}
