package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Every time.Duration `help:"Rebuild interval, e.g. 15m" xor:"when"`
	Cron  string        `help:"Rebuild on a five-field cron expression" xor:"when"`
}

func (s *ScheduleCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sched, err := schedule.NewScheduler()
	if err != nil {
		return err
	}
	task := s.task(ctx, cfg)
	if err := s.register(sched, task); err != nil {
		_ = sched.Stop(context.Background())
		return err
	}

	task()
	sched.Start()
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// task returns the job body: one build followed by a metrics flush.
func (s *ScheduleCmd) task(ctx context.Context, cfg *config.Config) func() {
	m := newBuildMetrics(cfg)
	return schedule.BuildTask(ctx, m.service(), build.BuildRequest{Config: cfg}, m.afterBuild)
}

func (s *ScheduleCmd) register(sched *schedule.Scheduler, task func()) error {
	switch {
	case s.Cron != "":
		_, err := sched.ScheduleCron("scheduled-build", s.Cron, task)
		return err
	case s.Every != 0:
		_, err := sched.ScheduleEvery("scheduled-build", s.Every, task)
		return err
	default:
		return errors.ValidationFailed("schedule", "one of --every or --cron is required")
	}
}
