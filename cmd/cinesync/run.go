package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/pipeline"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Link everything in the watch directories once",
		Long: `Scan both watch directories, link every media file that is not linked
yet, remove links whose source file is gone, and print a summary.

Running it twice on an unchanged watch directory creates nothing new.

Examples:
  cinesync run
  cinesync run --dry-run`,
		Args: cobra.NoArgs,
		RunE: runOnce,
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(options())
	if err != nil {
		return err
	}
	summary, err := linkAll(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

// linkAll runs one scan and pipeline pass over cfg. Ctrl-C stops between
// candidates and still returns the partial summary.
func linkAll(ctx context.Context, cfg *config.Config) (*pipeline.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options()
	var bar *ui.ProgressBar
	if ui.IsTerminal() && !verbose {
		opts.Progress = func(done, total int, o pipeline.Outcome) {
			if bar == nil {
				bar = ui.NewProgressBar(total, "Linking")
			}
			bar.Update(done)
		}
	}

	a, err := app.New(cfg, opts)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	candidates, err := a.Scanner.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A library that cannot be walked is reported; the others still run.
		a.Logger.Error("run", "scan incomplete", err)
	}

	return a.Pipeline.Run(ctx, pipeline.ModeRun, candidates), nil
}
