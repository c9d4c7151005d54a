// Package scheduler runs post generation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler triggers a Job on a standard five-field cron expression.
// Runs never overlap: a tick that arrives while the previous run is still
// busy is skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	timeout time.Duration
}

// New creates a Scheduler evaluating spec in loc. Each run gets a context
// bounded by timeout; zero means no bound.
func New(spec string, loc *time.Location, timeout time.Duration, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := slogLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{cron: c, spec: spec, timeout: timeout}
	if _, err := c.AddFunc(spec, func() { s.run(job) }); err != nil {
		return nil, fmt.Errorf("scheduling %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slog.Info("running scheduled generation", "schedule", s.spec)
	if err := job(ctx); err != nil {
		slog.Error("scheduled generation failed", "error", err)
	}
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.spec, "next", s.Next())
}

// Stop halts the schedule and returns a context that is done once a
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	slog.Info("scheduler stopped")
	return ctx
}

// Next returns the time of the next run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
