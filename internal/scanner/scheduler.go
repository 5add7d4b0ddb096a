package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Nomadcxx/cinesync/internal/logging"
)

// CycleFunc is one reconcile cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler runs a reconcile cycle on a cron schedule. A tick that fires
// while the previous cycle still runs is skipped.
type Scheduler struct {
	schedule cron.Schedule
	spec     string
	cycle    CycleFunc
	logger   *logging.Logger

	mu           sync.Mutex
	ctx          context.Context
	running      bool
	lastRun      time.Time
	lastSuccess  time.Time
	lastError    error
	skippedTicks int64
	healthy      bool

	wg sync.WaitGroup
}

// SchedulerStatus holds the current state for health reporting
type SchedulerStatus struct {
	Healthy      bool      `json:"healthy"`
	Schedule     string    `json:"schedule"`
	Running      bool      `json:"running"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	SkippedTicks int64     `json:"skipped_ticks"`
}

// NewScheduler parses spec ("@every 5m", "*/10 * * * *", ...) and returns a
// scheduler that calls cycle on it.
func NewScheduler(spec string, cycle CycleFunc, logger *logging.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scheduler{
		schedule: schedule,
		spec:     spec,
		cycle:    cycle,
		logger:   logger,
		healthy:  true,
	}, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// cycle to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() { s.tick(ctx) }))

	s.logger.Info("scanner", "reconcile scheduler starting", logging.F("schedule", s.spec))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scanner", "reconcile scheduler stopped")
	return nil
}

// Trigger starts a cycle now in the background. It returns false when a
// cycle is already running.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return s.RunNow(ctx)
}

// RunNow starts a cycle bound to ctx in the background. Start waits for it
// before returning.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.begin() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()
	return true
}

// Status returns the current scheduler status
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Healthy:      s.healthy,
		Schedule:     s.spec,
		Running:      s.running,
		LastRun:      s.lastRun,
		LastSuccess:  s.lastSuccess,
		SkippedTicks: s.skippedTicks,
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	return status
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.begin() {
		s.mu.Lock()
		s.skippedTicks++
		skipped := s.skippedTicks
		s.mu.Unlock()
		s.logger.Warn("scanner", "reconcile skipped - previous cycle still running",
			logging.F("skipped_ticks", skipped))
		return
	}
	s.execute(ctx)
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) execute(ctx context.Context) {
	err := s.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = time.Now()
	if err != nil {
		s.lastError = err
		s.healthy = false
		return
	}
	s.lastSuccess = s.lastRun
	s.lastError = nil
	s.healthy = true
}

func (s *Scheduler) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile panic: %v", r)
		}
		if err != nil {
			s.logger.Error("scanner", "reconcile cycle failed", err)
		}
	}()

	if ctx.Err() != nil {
		return nil
	}
	return s.cycle(ctx)
}
