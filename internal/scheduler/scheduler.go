// Package scheduler runs the periodic background sweeps on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepFunc is one scheduled job body.
type SweepFunc func(ctx context.Context, now time.Time) error

// Scheduler manages the cron tasks: the envelope rollover sweep and the
// daily engagement digest.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		ctx:  ctx,
	}
}

// Register adds a named sweep on a standard 5-field cron spec.
func (s *Scheduler) Register(name, spec string, fn SweepFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		slog.InfoContext(s.ctx, "Sweep started", "sweep", name)
		if err := fn(s.ctx, start); err != nil {
			slog.ErrorContext(s.ctx, "Sweep failed",
				"sweep", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		slog.InfoContext(s.ctx, "Sweep completed",
			"sweep", name, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("register %s sweep: %w", name, err)
	}
	return nil
}

// RunNow executes a sweep immediately, outside its schedule.
func (s *Scheduler) RunNow(name string, fn SweepFunc) {
	start := time.Now()
	slog.InfoContext(s.ctx, "Sweep started", "sweep", name, "trigger", "manual")
	if err := fn(s.ctx, start); err != nil {
		slog.ErrorContext(s.ctx, "Sweep failed", "sweep", name, "error", err)
		return
	}
	slog.InfoContext(s.ctx, "Sweep completed",
		"sweep", name, "duration_ms", time.Since(start).Milliseconds())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	slog.Info("Scheduler stopped")
}
