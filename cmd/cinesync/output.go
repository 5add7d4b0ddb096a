package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Nomadcxx/cinesync/internal/pipeline"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func printSummary(s *pipeline.Summary) {
	ui.Section("Summary")
	if s.DryRun {
		fmt.Println(ui.Warning("Dry run: nothing was linked, removed or recorded."))
	}

	fmt.Println(ui.RenderTable(
		[]string{"Result", "Count"},
		summaryRows(s),
		[]ui.Alignment{ui.AlignLeft, ui.AlignRight},
	))

	if rows := problemRows(s); len(rows) > 0 {
		ui.Section("Not linked")
		fmt.Println(ui.RenderTable(
			[]string{"File", "Status", "Reason", "Detail"},
			rows,
			nil,
		))
	}

	if s.CleanupErr != nil {
		ui.ErrorMsg("stale link cleanup incomplete: %v", s.CleanupErr)
	}

	switch {
	case s.Errors():
		ui.ErrorMsg("finished with errors in %s: %d failed", ui.FormatDuration(s.Duration()), s.Failed)
	case len(s.Problems) > 0:
		ui.WarningMsg("%d of %d files not linked, finished in %s",
			len(s.Problems), s.Processed(), ui.FormatDuration(s.Duration()))
	default:
		ui.SuccessMsg("%d files processed in %s", s.Processed(), ui.FormatDuration(s.Duration()))
	}
}

func summaryRows(s *pipeline.Summary) [][]string {
	return [][]string{
		{ui.Status("created"), strconv.Itoa(s.Created)},
		{ui.Status("updated"), strconv.Itoa(s.Updated)},
		{ui.Status("unchanged"), strconv.Itoa(s.Unchanged)},
		{"unverified", strconv.Itoa(s.Unverified)},
		{ui.Status("skipped"), strconv.Itoa(s.Skipped)},
		{ui.Status("deferred"), strconv.Itoa(s.Deferred)},
		{ui.Status("failed"), strconv.Itoa(s.Failed)},
		{"stale links removed", strconv.Itoa(s.Removed)},
	}
}

func problemRows(s *pipeline.Summary) [][]string {
	rows := make([][]string, 0, len(s.Problems))
	for _, o := range s.Problems {
		rows = append(rows, []string{
			ui.Truncate(filepath.Base(o.Candidate.SourcePath), 50),
			ui.Status(string(o.Status)),
			string(o.Reason),
			ui.Truncate(o.Detail, 60),
		})
	}
	return rows
}
