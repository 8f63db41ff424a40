// Package schedule runs site builds periodically on an interval or cron expression.
package schedule

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Scheduler wraps gocron scheduler for managing periodic builds.
// Each job runs in singleton mode, so a slow build delays the next tick
// instead of overlapping it.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to create gocron scheduler: %w", err),
			errors.CategoryRuntime, errors.SeverityFatal, "scheduler unavailable")
	}

	return &Scheduler{
		scheduler: s,
	}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleCron runs task on a standard five-field cron expression.
// Returns the job ID for later management.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.ValidationFailed("cron", err.Error()).WithContext("value", expr)
	}
	return job.ID().String(), nil
}

// ScheduleEvery runs task every interval.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationFailed("every", "interval must be positive").
			WithContext("value", interval.String())
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.ValidationFailed("every", err.Error()).WithContext("value", interval.String())
	}
	return job.ID().String(), nil
}

// BuildHook observes the outcome of every scheduled build.
type BuildHook func(result *build.BuildResult, err error)

// BuildTask returns a job body that runs one build of req under ctx.
// Failures are logged; the schedule keeps going. A nil hook is allowed.
func BuildTask(ctx context.Context, svc build.BuildService, req build.BuildRequest, hook BuildHook) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		slog.Info("Executing scheduled build")
		result, err := svc.Run(ctx, req)
		switch {
		case err == nil:
			slog.Info("Scheduled build finished",
				logfields.BuildID(result.BuildID),
				logfields.Files(result.FilesProcessed()))
		case stdErrors.Is(err, context.Canceled):
			slog.Info("Scheduled build cancelled")
		default:
			slog.Error("Scheduled build failed", logfields.Error(err))
		}
		if hook != nil {
			hook(result, err)
		}
	}
}
