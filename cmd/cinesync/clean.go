package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove links whose source file no longer exists",
		Long: `Walk the target directories and delete every symbolic link that points
into a watch directory at a file that is gone. Emptied folders are removed.
Nothing else is scanned or linked.

Examples:
  cinesync clean --dry-run
  cinesync clean`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(options())
	if err != nil {
		return err
	}
	a, err := app.New(cfg, options())
	if err != nil {
		return err
	}
	defer a.Close()

	summary := a.Pipeline.Clean()

	verb := "Removed"
	if summary.DryRun {
		verb = "Would remove"
	}
	for _, link := range summary.RemovedLinks {
		fmt.Printf("  %s %s\n", ui.Dim("-"), ui.Path(link))
	}
	if summary.CleanupErr != nil {
		ui.ErrorMsg("cleanup incomplete: %v", summary.CleanupErr)
		return summary.CleanupErr
	}
	ui.SuccessMsg("%s %d stale links", verb, summary.Removed)
	return nil
}
