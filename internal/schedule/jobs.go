package schedule

import (
	"context"
	"log/slog"
	"time"
)

// GrantSweeper is the subset of the grant store needed by the sweep job.
type GrantSweeper interface {
	SweepExpired() int
}

// SessionReaper is the subset of the terminal manager needed by the reap job.
type SessionReaper interface {
	ReapIdle(maxIdle time.Duration) int
}

// GrantSweepJob removes expired authorization grants. Lookup already
// expires lazily; the sweep bounds memory growth from abandoned grants.
type GrantSweepJob struct {
	Grants       GrantSweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "* * * * *"
}

// Compile-time interface check.
var _ Job = (*GrantSweepJob)(nil)

// Name implements Job.
func (j *GrantSweepJob) Name() string { return "grant_sweep" }

// Schedule implements Job.
func (j *GrantSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "* * * * *"
}

// Run sweeps expired grants.
func (j *GrantSweepJob) Run(_ context.Context) error {
	removed := j.Grants.SweepExpired()
	if removed > 0 {
		j.Logger.Info("schedule: swept expired grants", "count", removed)
	}
	return nil
}

// SessionReapJob closes terminal sessions idle longer than MaxIdle.
// A zero MaxIdle disables the job body, so wiring it unconditionally is safe.
type SessionReapJob struct {
	Sessions     SessionReaper
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*SessionReapJob)(nil)

// Name implements Job.
func (j *SessionReapJob) Name() string { return "session_reap" }

// Schedule implements Job.
func (j *SessionReapJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run reaps idle sessions.
func (j *SessionReapJob) Run(_ context.Context) error {
	if j.MaxIdle <= 0 {
		return nil
	}
	reaped := j.Sessions.ReapIdle(j.MaxIdle)
	if reaped > 0 {
		j.Logger.Info("schedule: reaped idle sessions", "count", reaped)
	}
	return nil
}
