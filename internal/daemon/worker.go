package daemon

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/naming"
	"github.com/Nomadcxx/cinesync/internal/pipeline"
)

// Processor is the part of the pipeline the worker drives.
type Processor interface {
	Process(ctx context.Context, c naming.MediaCandidate) pipeline.Outcome
	Run(ctx context.Context, mode string, candidates []naming.MediaCandidate) *pipeline.Summary
	Deferred() ([]naming.MediaCandidate, error)
}

// Rescanner lists every candidate currently in the watch directories.
type Rescanner interface {
	Scan(ctx context.Context) ([]naming.MediaCandidate, error)
}

// Worker consumes the debounced path queue and runs reconcile cycles. The
// two never overlap: at most one candidate is in the pipeline at a time.
type Worker struct {
	pipeline Processor
	scanner  Rescanner
	queue    chan string
	logger   *logging.Logger
	stats    *Stats

	mu sync.Mutex
}

func NewWorker(p Processor, s Rescanner, queueSize int, logger *logging.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{
		pipeline: p,
		scanner:  s,
		queue:    make(chan string, queueSize),
		logger:   logger,
		stats:    NewStats(),
	}
}

// Enqueue adds a path without blocking. It returns false when the queue is full.
func (w *Worker) Enqueue(path string) bool {
	select {
	case w.queue <- path:
		return true
	default:
		return false
	}
}

// QueueLength returns the number of paths waiting.
func (w *Worker) QueueLength() int {
	return len(w.queue)
}

// Stats returns a snapshot of the worker counters
func (w *Worker) Stats() StatsSnapshot {
	snap := w.stats.Snapshot()
	snap.QueueLength = len(w.queue)
	return snap
}

// Run processes queued paths until ctx is cancelled. The candidate in
// flight when ctx is cancelled is finished; nothing further is drained.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			if ctx.Err() != nil {
				return
			}
			w.process(ctx, path)
		}
	}
}

func (w *Worker) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		w.logger.Debug("worker", "file vanished before processing", logging.F("path", path))
		return
	}
	if err == nil && (info.IsDir() || !naming.IsCandidate(path, info.Size())) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	o := w.pipeline.Process(ctx, naming.NewCandidate(path, naming.KindUnknown))
	w.stats.Record(o)

	if o.Linked() {
		w.logger.Info("worker", "processed",
			logging.F("status", string(o.Status)),
			logging.F("source", path),
			logging.F("link", o.Target.LinkPath()),
			logging.F("verified", o.Verified))
	}
}

// Cycle is one reconcile cycle: stale links are removed, then deferred
// candidates are retried together with a rescan of the watch directories.
func (w *Worker) Cycle(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	deferred, err := w.pipeline.Deferred()
	if err != nil {
		w.logger.Error("worker", "failed to load deferred candidates", err)
	}

	scanned, scanErr := w.scanner.Scan(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if scanErr != nil {
		w.logger.Error("worker", "rescan incomplete", scanErr)
	}

	candidates := mergeCandidates(deferred, scanned)
	summary := w.pipeline.Run(ctx, pipeline.ModeReconcile, candidates)
	w.stats.RecordCycle(summary)

	return errors.Join(err, scanErr, summary.CleanupErr)
}

// mergeCandidates returns first followed by the entries of second whose
// path is not already present.
func mergeCandidates(first, second []naming.MediaCandidate) []naming.MediaCandidate {
	seen := make(map[string]struct{}, len(first))
	merged := make([]naming.MediaCandidate, 0, len(first)+len(second))
	for _, list := range [][]naming.MediaCandidate{first, second} {
		for _, c := range list {
			if _, ok := seen[c.SourcePath]; ok {
				continue
			}
			seen[c.SourcePath] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

// Stats counts outcomes since the watcher started
type Stats struct {
	mu            sync.RWMutex
	counts        map[pipeline.Status]int64
	Unverified    int64
	Removed       int64
	Cycles        int64
	LastProcessed time.Time
	LastCycle     time.Time
	StartTime     time.Time
}

func NewStats() *Stats {
	return &Stats{
		counts:    make(map[pipeline.Status]int64),
		StartTime: time.Now(),
	}
}

func (s *Stats) Record(o pipeline.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[o.Status]++
	if o.Linked() && !o.Verified {
		s.Unverified++
	}
	s.LastProcessed = time.Now()
}

func (s *Stats) RecordCycle(summary *pipeline.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[pipeline.StatusCreated] += int64(summary.Created)
	s.counts[pipeline.StatusUpdated] += int64(summary.Updated)
	s.counts[pipeline.StatusUnchanged] += int64(summary.Unchanged)
	s.counts[pipeline.StatusSkipped] += int64(summary.Skipped)
	s.counts[pipeline.StatusDeferred] += int64(summary.Deferred)
	s.counts[pipeline.StatusFailed] += int64(summary.Failed)
	s.Unverified += int64(summary.Unverified)
	s.Removed += int64(summary.Removed)
	s.Cycles++
	s.LastCycle = time.Now()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Created:       s.counts[pipeline.StatusCreated],
		Updated:       s.counts[pipeline.StatusUpdated],
		Unchanged:     s.counts[pipeline.StatusUnchanged],
		Unverified:    s.Unverified,
		Skipped:       s.counts[pipeline.StatusSkipped],
		Deferred:      s.counts[pipeline.StatusDeferred],
		Failed:        s.counts[pipeline.StatusFailed],
		Removed:       s.Removed,
		Cycles:        s.Cycles,
		LastProcessed: s.LastProcessed,
		LastCycle:     s.LastCycle,
		Uptime:        time.Since(s.StartTime),
	}
}

type StatsSnapshot struct {
	Created       int64
	Updated       int64
	Unchanged     int64
	Unverified    int64
	Skipped       int64
	Deferred      int64
	Failed        int64
	Removed       int64
	Cycles        int64
	QueueLength   int
	LastProcessed time.Time
	LastCycle     time.Time
	Uptime        time.Duration
}
