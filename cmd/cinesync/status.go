package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/notify"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var (
		runs   int
		reason string
		links  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the link registry, recent runs and skipped files",
		Long: `Display what the link registry knows:

  - link counts by kind and how many are unverified
  - the most recent runs and reconcile cycles
  - files that were skipped or deferred, with the reason and attempt count
  - whether the configured media server answers

Examples:
  cinesync status
  cinesync status --reason unparsable_name
  cinesync status --links`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(runs, database.SkipReason(reason), links)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 10, "number of recent runs to show")
	cmd.Flags().StringVar(&reason, "reason", "", "only list skipped files with this reason")
	cmd.Flags().BoolVar(&links, "links", false, "list every recorded link")

	return cmd
}

func runStatus(runLimit int, reason database.SkipReason, listLinks bool) error {
	cfg, err := app.LoadConfig(options())
	if err != nil {
		return err
	}

	registry, err := database.OpenPath(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open link registry: %w", err)
	}
	defer registry.Close()

	stats, err := registry.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	version, err := registry.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	ui.Section("Link registry")
	fmt.Printf("Database: %s (schema v%d)\n", ui.Path(registry.Path()), version)
	for _, lib := range cfg.Libraries() {
		fmt.Printf("%-8s %s → %s\n", lib.Name, lib.Watch, lib.Target)
	}
	fmt.Println(ui.RenderTable(
		[]string{"Links", "Movies", "Episodes", "Unverified", "Skipped", "Runs"},
		[][]string{{
			ui.Count(stats.Links), ui.Count(stats.Movies), ui.Count(stats.Episodes),
			ui.Count(stats.Unverified), ui.Count(stats.Skipped), ui.Count(stats.Runs),
		}},
		[]ui.Alignment{ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight},
	))

	recent, err := registry.RecentRuns(runLimit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	ui.Section("Recent runs")
	if len(recent) == 0 {
		fmt.Println(ui.Dim("No runs recorded yet."))
	} else {
		fmt.Println(ui.RenderTable(
			[]string{"Started", "Mode", "Created", "Updated", "Unchanged", "Skipped", "Deferred", "Failed", "Removed", "Took"},
			runRows(recent),
			[]ui.Alignment{ui.AlignLeft, ui.AlignLeft, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight, ui.AlignRight},
		))
	}

	if err := printSkipped(registry, reason); err != nil {
		return err
	}

	printNotifiers(notify.FromConfig(cfg.Notify, nil))

	if listLinks {
		records, err := registry.ListLinks()
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}
		ui.Section("Links")
		fmt.Println(ui.RenderTable(
			[]string{"Link", "Kind", "Verified", "Source"},
			linkRows(records),
			nil,
		))
	}
	return nil
}

func printSkipped(registry *database.Registry, reason database.SkipReason) error {
	var (
		items []database.SkippedItem
		err   error
	)
	if reason != "" {
		items, err = registry.GetSkippedItemsByReason(reason)
	} else {
		items, err = registry.GetSkippedItems()
	}
	if err != nil {
		return fmt.Errorf("failed to get skipped files: %w", err)
	}

	ui.Section("Skipped files")
	if len(items) == 0 {
		fmt.Println(ui.Dim("Nothing skipped."))
		return nil
	}

	if reason == "" {
		counts, err := registry.CountSkippedByReason()
		if err != nil {
			return fmt.Errorf("failed to count skipped files: %w", err)
		}
		fmt.Println(ui.RenderTable(
			[]string{"Reason", "Files"},
			reasonRows(counts),
			[]ui.Alignment{ui.AlignLeft, ui.AlignRight},
		))
	}

	fmt.Println(ui.RenderTable(
		[]string{"File", "Reason", "Attempts", "Last seen", "Detail"},
		skippedRows(items),
		[]ui.Alignment{ui.AlignLeft, ui.AlignLeft, ui.AlignRight},
	))
	return nil
}

func printNotifiers(m *notify.Manager) {
	if m.NotifierCount() == 0 {
		return
	}
	ui.Section("Media server")
	results := m.PingAll(context.Background())
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := results[name]; err != nil {
			ui.ErrorMsg("%s unreachable: %v", name, err)
			continue
		}
		ui.SuccessMsg("%s reachable", name)
	}
}

func runRows(runs []database.RunRecord) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		mode := r.Mode
		if r.DryRun {
			mode += " (dry run)"
		}
		rows = append(rows, []string{
			ui.Ago(r.StartedAt),
			mode,
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Unchanged),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Deferred),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Removed),
			ui.FormatDuration(r.FinishedAt.Sub(r.StartedAt)),
		})
	}
	return rows
}

func reasonRows(counts map[database.SkipReason]int) [][]string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	rows := make([][]string, 0, len(reasons))
	for _, reason := range reasons {
		rows = append(rows, []string{reason, strconv.Itoa(counts[database.SkipReason(reason)])})
	}
	return rows
}

func skippedRows(items []database.SkippedItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			ui.Truncate(item.Path, 60),
			string(item.Reason),
			strconv.Itoa(item.Attempts),
			ui.Ago(item.UpdatedAt),
			ui.Truncate(item.Detail, 50),
		})
	}
	return rows
}

func linkRows(records []database.LinkRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		verified := "no"
		if rec.Verified {
			verified = "yes"
		}
		rows = append(rows, []string{
			ui.Truncate(rec.LinkPath, 70),
			ui.Kind(rec.Kind),
			verified,
			ui.Truncate(rec.SourcePath, 60),
		})
	}
	return rows
}
