package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/daemon"
	"github.com/Nomadcxx/cinesync/internal/service"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the download directories and link new files as they arrive",
		Long: `Run until interrupted. New and changed media files are linked after a
quiet period (daemon.debounce_seconds); removals trigger a reconcile. A
periodic reconcile (daemon.reconcile_schedule) removes stale links, retries
deferred files and rescans for anything missed.

Only one watcher may run per working directory.

With daemon.status_addr set, a status endpoint serves:
  GET  /health
  GET  /stats
  POST /reconcile`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(options())
	if err != nil {
		return err
	}

	a, err := app.New(cfg, options())
	if err != nil {
		return err
	}
	defer a.Close()

	d := daemon.New(cfg, a.Pipeline, a.Scanner, a.Registry, a.Logger)
	if err := service.RunWatcher(cmd.Context(), d.Run); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("%w (lock %s)", err, daemon.NewLock(cfg.WorkingDirectory).Path())
		}
		return err
	}
	return nil
}
