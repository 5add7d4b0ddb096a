package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/naming"
	"github.com/Nomadcxx/cinesync/internal/pipeline"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func init() {
	ui.DisableColors()
}

func TestSummaryRows(t *testing.T) {
	s := &pipeline.Summary{Created: 9, Skipped: 1, Unverified: 2, Removed: 3}

	rows := summaryRows(s)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"created", "9"}, rows[0])
	assert.Equal(t, []string{"unverified", "2"}, rows[3])
	assert.Equal(t, []string{"skipped", "1"}, rows[4])
	assert.Equal(t, []string{"stale links removed", "3"}, rows[7])
}

func TestProblemRows(t *testing.T) {
	s := &pipeline.Summary{}
	s.Add(pipeline.Outcome{
		Candidate: naming.NewCandidate("/watch/movies/sample.mkv", naming.KindMovie),
		Status:    pipeline.StatusSkipped,
		Reason:    database.SkipReasonUnparsableName,
		Detail:    "no title found",
		Err:       errors.New("unparsable"),
	})

	rows := problemRows(s)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"sample.mkv", "skipped", "unparsable_name", "no title found"}, rows[0])
}

func TestReasonRows_Sorted(t *testing.T) {
	rows := reasonRows(map[database.SkipReason]int{
		database.SkipReasonUnparsableName:      4,
		database.SkipReasonConflict:            1,
		database.SkipReasonResolverUnavailable: 2,
	})
	assert.Equal(t, [][]string{
		{"conflict", "1"},
		{"resolver_unavailable", "2"},
		{"unparsable_name", "4"},
	}, rows)
}

func TestRunRows(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)
	rows := runRows([]database.RunRecord{{
		Mode:       pipeline.ModeReconcile,
		DryRun:     true,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Created:    2,
	}})

	require.Len(t, rows, 1)
	assert.Equal(t, "2 hours ago", rows[0][0])
	assert.Equal(t, pipeline.ModeReconcile+" (dry run)", rows[0][1])
	assert.Equal(t, "2", rows[0][2])
	assert.Equal(t, "1.5s", rows[0][9])
}

func TestRootCmd_Flags(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"run", "watch", "setup", "service", "status", "clean"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "dry-run", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "n", root.PersistentFlags().Lookup("dry-run").Shorthand)
	assert.Equal(t, "v", root.PersistentFlags().Lookup("verbose").Shorthand)

	root.SetArgs([]string{"--watch", "--setup"})
	root.SetOut(new(discard))
	root.SetErr(new(discard))
	assert.Error(t, root.Execute(), "mode flags are mutually exclusive")
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
