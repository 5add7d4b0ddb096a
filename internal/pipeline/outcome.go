package pipeline

import (
	"time"

	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/naming"
)

// Status is the classification of one processed candidate
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusDeferred  Status = "deferred"
	StatusFailed    Status = "failed"
)

// Outcome is the result of running one candidate through the pipeline.
// Err is nil for created, updated and unchanged candidates.
type Outcome struct {
	Candidate naming.MediaCandidate
	Status    Status
	Target    naming.LinkTarget
	Verified  bool
	Reason    database.SkipReason
	Detail    string
	Err       error
	// Replaced is the link the source had before it moved to Target.
	Replaced string
}

// Linked reports whether the candidate has a link in the target tree.
func (o Outcome) Linked() bool {
	switch o.Status {
	case StatusCreated, StatusUpdated, StatusUnchanged:
		return true
	}
	return false
}

// Summary aggregates outcomes for a run
type Summary struct {
	Mode       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	Created    int
	Updated    int
	Unchanged  int
	Unverified int
	Skipped    int
	Deferred   int
	Failed     int
	Removed    int

	// Problems holds every outcome that did not end in a link, in order.
	Problems []Outcome
	// RemovedLinks are the stale links deleted by the cleanup pass.
	RemovedLinks []string
	// CleanupErr is the joined error of the cleanup pass, if any.
	CleanupErr error
}

// Add counts one outcome.
func (s *Summary) Add(o Outcome) {
	switch o.Status {
	case StatusCreated:
		s.Created++
	case StatusUpdated:
		s.Updated++
	case StatusUnchanged:
		s.Unchanged++
	case StatusSkipped:
		s.Skipped++
	case StatusDeferred:
		s.Deferred++
	case StatusFailed:
		s.Failed++
	}
	if o.Linked() && !o.Verified {
		s.Unverified++
	}
	if !o.Linked() {
		s.Problems = append(s.Problems, o)
	}
}

// Processed returns the number of candidates counted.
func (s *Summary) Processed() int {
	return s.Created + s.Updated + s.Unchanged + s.Skipped + s.Deferred + s.Failed
}

// Errors reports whether anything went wrong during the run.
func (s *Summary) Errors() bool {
	return s.Failed > 0 || s.CleanupErr != nil
}

// Duration returns how long the run took
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Record converts the summary to a registry run row.
func (s *Summary) Record() *database.RunRecord {
	return &database.RunRecord{
		Mode:       s.Mode,
		DryRun:     s.DryRun,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Created:    s.Created,
		Updated:    s.Updated,
		Unchanged:  s.Unchanged,
		Unverified: s.Unverified,
		Skipped:    s.Skipped,
		Deferred:   s.Deferred,
		Failed:     s.Failed,
		Removed:    s.Removed,
	}
}
