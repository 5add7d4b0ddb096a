// Package daemon runs watch mode: filesystem events are debounced per path,
// queued, and processed one at a time next to a periodic reconcile cycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/scanner"
	"github.com/Nomadcxx/cinesync/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns the watch-mode components. The registry is closed by the
// caller once Run returns.
type Daemon struct {
	cfg      *config.Config
	pipeline Processor
	scanner  Rescanner
	registry *database.Registry
	logger   *logging.Logger

	watchDirs []string
}

func New(cfg *config.Config, p Processor, s Rescanner, registry *database.Registry, logger *logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}

	var dirs []string
	seen := make(map[string]bool)
	for _, lib := range cfg.Libraries() {
		if seen[lib.Watch] {
			continue
		}
		seen[lib.Watch] = true
		dirs = append(dirs, lib.Watch)
	}

	return &Daemon{
		cfg:       cfg,
		pipeline:  p,
		scanner:   s,
		registry:  registry,
		logger:    logger,
		watchDirs: dirs,
	}
}

// Run blocks until ctx is cancelled or the process receives SIGINT or
// SIGTERM. It returns ErrAlreadyRunning when another watcher holds the lock
// for the working directory.
func (d *Daemon) Run(ctx context.Context) error {
	lock := NewLock(d.cfg.WorkingDirectory)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			d.logger.Error("daemon", "failed to release lock", err, logging.F("path", lock.Path()))
		}
	}()

	worker := NewWorker(d.pipeline, d.scanner, d.cfg.Daemon.QueueSize, d.logger)

	sched, err := scanner.NewScheduler(d.cfg.Daemon.ReconcileSchedule, worker.Cycle, d.logger)
	if err != nil {
		return err
	}

	handler := NewHandler(d.cfg.Daemon.Debounce(), worker.Enqueue, sched.Trigger, d.logger)

	w, err := watcher.NewWatcher(handler, watcher.WithLogger(d.logger))
	if err != nil {
		return err
	}
	if err := w.Watch(d.watchDirs); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch directories: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *Server
	if d.cfg.Daemon.StatusAddr != "" {
		server = NewServer(d.cfg.Daemon.StatusAddr, worker, sched, d.registry, d.logger)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sched.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := w.Start(ctx); err != nil {
			errCh <- err
		}
	}()
	if server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	d.logger.Info("daemon", "watching for new media",
		logging.F("directories", d.watchDirs),
		logging.F("debounce", d.cfg.Daemon.Debounce().String()),
		logging.F("reconcile", d.cfg.Daemon.ReconcileSchedule),
		logging.F("dry_run", d.cfg.Options.DryRun))

	// Catch up on anything that arrived while nothing was watching.
	sched.RunNow(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("daemon", "shutting down")
	case runErr = <-errCh:
		d.logger.Error("daemon", "component failed, shutting down", runErr)
		stop()
	}
	if server != nil {
		// /health answers 503 while the daemon drains.
		server.SetHealthy(false)
	}

	handler.Stop()
	if err := w.Close(); err != nil {
		d.logger.Warn("daemon", "failed to close watcher", logging.F("error", err.Error()))
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("daemon", "status server shutdown", logging.F("error", err.Error()))
		}
		cancel()
	}

	wg.Wait()
	d.logger.Info("daemon", "stopped", logging.F("pending_in_queue", worker.QueueLength()))

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
