// Package schedule runs toolgate's periodic maintenance: sweeping expired
// authorization grants and reaping idle terminal sessions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is one periodic maintenance task.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/5 * * * *").
	Schedule() string

	// Run executes one tick. Implementations should honor ctx cancellation.
	Run(ctx context.Context) error
}

// entry pairs a job with its running lock. TryLock keeps a slow tick from
// overlapping with the next one; the skipped tick is logged, not queued.
type entry struct {
	job     Job
	running sync.Mutex
}

// Scheduler drives the registered jobs on their cron expressions. The job
// set is fixed at wiring time: Add everything, then Start once.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []*entry
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{job: j})
}

// Start begins executing the registered jobs. Returns an error if any job
// has an invalid cron expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, e := range s.entries {
		e := e
		_, err := s.cron.AddFunc(e.job.Schedule(), func() { s.tick(ctx, e) })
		if err != nil {
			cancel()
			return fmt.Errorf("schedule: invalid expression for job %q: %w", e.job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("schedule: scheduler started", "jobs", len(s.entries))
	return nil
}

// tick runs one job invocation, skipping it if the previous tick is still
// in flight.
func (s *Scheduler) tick(ctx context.Context, e *entry) {
	if !e.running.TryLock() {
		s.logger.Warn("schedule: job still running, skipping tick", "job", e.job.Name())
		return
	}
	defer e.running.Unlock()

	if err := e.job.Run(ctx); err != nil {
		s.logger.Error("schedule: job failed", "job", e.job.Name(), "error", err)
	}
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("schedule: scheduler stopped")
	}
	return nil
}
