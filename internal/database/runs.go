package database

import (
	"time"

	"github.com/google/uuid"
)

// RunRecord summarizes one one-shot run or watch reconcile cycle
type RunRecord struct {
	ID         string
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
}

// RecordRun stores a run. An empty ID is filled with a new uuid, which is
// also returned.
func (r *Registry) RecordRun(run *RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO runs (id, mode, dry_run, started_at, finished_at,
			created, updated, unchanged, unverified, skipped, deferred, failed, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Mode, run.DryRun, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Created, run.Updated, run.Unchanged, run.Unverified,
		run.Skipped, run.Deferred, run.Failed, run.Removed)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecentRuns returns up to limit runs, newest first
func (r *Registry) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(`
		SELECT id, mode, dry_run, started_at, finished_at,
		       created, updated, unchanged, unverified, skipped, deferred, failed, removed
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var started, finished int64
		err := rows.Scan(&run.ID, &run.Mode, &run.DryRun, &started, &finished,
			&run.Created, &run.Updated, &run.Unchanged, &run.Unverified,
			&run.Skipped, &run.Deferred, &run.Failed, &run.Removed)
		if err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
