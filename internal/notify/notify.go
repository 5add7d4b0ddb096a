// Package notify asks media servers to rescan library folders after their
// links changed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/logging"
)

// Result is the outcome of one notifier call
type Result struct {
	Service  string
	Success  bool
	Error    error
	Duration time.Duration
}

// Notifier is implemented by every media server integration.
type Notifier interface {
	Name() string
	Enabled() bool
	// Refresh asks the server to rescan the given library item folders.
	Refresh(ctx context.Context, folders []string) error
	Ping(ctx context.Context) error
}

// Manager fans a refresh out to every registered notifier
type Manager struct {
	notifiers []Notifier
	mu        sync.RWMutex
	logger    *logging.Logger
}

func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{logger: logger}
}

// FromConfig returns a manager with the notifiers enabled in cfg. The
// manager has no notifiers when none are configured.
func FromConfig(cfg config.NotifyConfig, logger *logging.Logger) *Manager {
	m := NewManager(logger)
	m.Register(NewJellyfinNotifier(cfg.JellyfinURL, cfg.JellyfinAPIKey, true))
	return m
}

// Register adds n when it is enabled.
func (m *Manager) Register(n Notifier) {
	if !n.Enabled() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
	m.logger.Debug("notify", "registered notifier", logging.F("service", n.Name()))
}

// NotifierCount returns the number of registered notifiers.
func (m *Manager) NotifierCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}

// Refresh calls every notifier in turn. Failures are logged and joined;
// one failing server does not stop the others.
func (m *Manager) Refresh(ctx context.Context, folders []string) error {
	if len(folders) == 0 {
		return nil
	}

	m.mu.RLock()
	notifiers := make([]Notifier, len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.RUnlock()

	var errs []error
	for _, n := range notifiers {
		res := m.refresh(ctx, n, folders)
		if res.Success {
			m.logger.Info("notify", "library refresh requested",
				logging.F("service", res.Service),
				logging.F("folders", len(folders)),
				logging.F("duration", res.Duration.Round(time.Millisecond)))
			continue
		}
		m.logger.Warn("notify", "library refresh failed",
			logging.F("service", res.Service),
			logging.F("error", res.Error.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", res.Service, res.Error))
	}
	return errors.Join(errs...)
}

func (m *Manager) refresh(ctx context.Context, n Notifier, folders []string) *Result {
	start := time.Now()
	err := n.Refresh(ctx, folders)
	return &Result{
		Service:  n.Name(),
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(start),
	}
}

// PingAll checks connectivity to all registered notifiers
func (m *Manager) PingAll(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error, len(m.notifiers))
	for _, n := range m.notifiers {
		results[n.Name()] = n.Ping(ctx)
	}
	return results
}
