// Package pipeline schedules the ingestion and edition jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one named unit of periodic work. A failed run is logged and retried
// on the next tick; it never stops the scheduler.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// FailureHook is told about every failed job run.
type FailureHook func(ctx context.Context, job string, err error)

// Scheduler runs each Job on its own ticker. Runs of one job never overlap.
type Scheduler struct {
	jobs      []Job
	onFailure FailureHook
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger, onFailure FailureHook, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:      jobs,
		onFailure: onFailure,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Run starts every job immediately and then on its interval until ctx is
// cancelled. It returns nil on a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("pipeline: no jobs configured")
	}
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			return fmt.Errorf("pipeline: job %s: interval must be positive", j.Name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

// RunOnce runs every job a single time in order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, j := range s.jobs {
		if err := s.runJob(ctx, j); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j.Name, err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	s.logger.Info("job scheduled", slog.String("job", j.Name), slog.Duration("interval", j.Interval))
	_ = s.runJob(ctx, j)

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.runJob(ctx, j)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j Job) error {
	start := time.Now()
	err := j.Run(ctx)
	took := time.Since(start)
	if err == nil {
		s.logger.Debug("job finished", slog.String("job", j.Name), slog.Duration("took", took))
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	s.logger.Error("job failed",
		slog.String("job", j.Name),
		slog.Duration("took", took),
		slog.String("error", err.Error()),
	)
	if s.onFailure != nil {
		s.onFailure(ctx, j.Name, err)
	}
	return err
}
