// Package scheduler runs periodic work: it publishes one budget digest job per
// configured recipient on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	log zerolog.Logger
}

// NewScheduler creates a Scheduler. Specs use the six-field format with a
// leading seconds column, e.g. "0 0 20 * * *" for 20:00 every day.
func NewScheduler(ctx context.Context, log zerolog.Logger, opts ...cron.Option) *Scheduler {
	opts = append([]cron.Option{cron.WithSeconds()}, opts...)
	return &Scheduler{
		Cron: cron.New(opts...),
		Ctx:  ctx,
		log:  log,
	}
}

// Register adds a named task. Task errors are logged, never propagated.
func (s *Scheduler) Register(name, spec string, task func(ctx context.Context) error) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.run(name, task) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.log.Info().Str("task", name).Str("spec", spec).Msg("Task registered")
	return nil
}

func (s *Scheduler) run(name string, task func(ctx context.Context) error) {
	if err := s.Ctx.Err(); err != nil {
		return
	}
	if err := task(s.Ctx); err != nil {
		s.log.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
		return
	}
	s.log.Debug().Str("task", name).Msg("Scheduled task finished")
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("tasks", len(s.Cron.Entries())).Msg("Scheduler started")
}

// Stop stops the cron scheduler. The returned context is done once running
// tasks have finished.
func (s *Scheduler) Stop() context.Context {
	ctx := s.Cron.Stop()
	s.log.Info().Msg("Scheduler stopped")
	return ctx
}
