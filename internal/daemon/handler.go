package daemon

import (
	"sync"
	"time"

	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/watcher"
)

// reconcileKey is the pending-timer slot shared by all removals, so a burst
// of deletes schedules a single reconcile.
const reconcileKey = "\x00reconcile"

// Handler debounces watcher events per path. Every event on a path restarts
// its timer; when the timer fires the path is handed to enqueue. Removals
// and renames schedule a reconcile instead.
type Handler struct {
	debounce  time.Duration
	enqueue   func(path string) bool
	reconcile func() bool
	logger    *logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

func NewHandler(debounce time.Duration, enqueue func(path string) bool, reconcile func() bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		debounce:  debounce,
		enqueue:   enqueue,
		reconcile: reconcile,
		logger:    logger,
		pending:   make(map[string]*time.Timer),
	}
}

func (h *Handler) HandleFileEvent(event watcher.FileEvent) error {
	switch event.Type {
	case watcher.EventDelete, watcher.EventMove:
		h.schedule(reconcileKey, h.fireReconcile)
	default:
		path := event.Path
		h.schedule(path, func() { h.fire(path) })
	}
	return nil
}

func (h *Handler) schedule(key string, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	if timer, exists := h.pending[key]; exists {
		timer.Stop()
	}
	h.pending[key] = time.AfterFunc(h.debounce, fn)
}

// take removes key from the pending set. It returns false when the handler
// was stopped after the timer fired.
func (h *Handler) take(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, key)
	return !h.stopped
}

func (h *Handler) fire(path string) {
	if !h.take(path) {
		return
	}
	if !h.enqueue(path) {
		h.logger.Warn("handler", "queue full, leaving file for the next reconcile",
			logging.F("path", path))
	}
}

func (h *Handler) fireReconcile() {
	if !h.take(reconcileKey) {
		return
	}
	if !h.reconcile() {
		h.logger.Debug("handler", "reconcile already running")
	}
}

// Pending returns the number of armed timers.
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Stop cancels every pending timer. Later events are ignored.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	for key, timer := range h.pending {
		timer.Stop()
		delete(h.pending, key)
	}
}
