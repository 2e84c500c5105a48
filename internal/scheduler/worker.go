package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/jobs"
	jobsmem "github.com/dvloznov/sheets-finance-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/rs/zerolog"
)

// DigestConfig configures a DigestWorker.
type DigestConfig struct {
	Cron       string
	Recipients []string
	Clock      func() time.Time

	// QueueSize and Workers size the in-memory queue; zero picks defaults.
	QueueSize int
	Workers   int
}

// DigestWorker bundles the job store, queue and cron trigger of the daily digest.
type DigestWorker struct {
	Store     *jobsmem.Store
	Queue     *jobsmem.Queue
	Scheduler *Scheduler

	log zerolog.Logger
}

// StartDigestWorker starts consuming digest jobs with handler and, when any
// recipients are configured, schedules their publication on cfg.Cron.
func StartDigestWorker(ctx context.Context, log zerolog.Logger, cfg DigestConfig, handler jobs.JobHandler) (*DigestWorker, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	store := jobsmem.NewStore()
	queue := jobsmem.NewQueue(cfg.QueueSize, store, jobsmem.WithWorkers(cfg.Workers))

	jobCtx := logger.WithContext(ctx, log)
	if err := queue.Start(jobCtx, handler); err != nil {
		return nil, fmt.Errorf("start job queue: %w", err)
	}

	w := &DigestWorker{
		Store:     store,
		Queue:     queue,
		Scheduler: NewScheduler(jobCtx, log),
		log:       log,
	}

	if len(cfg.Recipients) == 0 {
		log.Warn().Msg("No digest recipients configured; digest is not scheduled")
	} else if err := w.Scheduler.Register(DigestTask, cfg.Cron, DigestPublisher(queue, cfg.Recipients, cfg.Clock)); err != nil {
		_ = queue.Close()
		return nil, err
	}

	w.Scheduler.Start()
	return w, nil
}

// Stop halts the scheduler, then drains the queue within ctx.
func (w *DigestWorker) Stop(ctx context.Context) error {
	select {
	case <-w.Scheduler.Stop().Done():
	case <-ctx.Done():
	}

	var errs []error
	if err := w.Queue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop job queue: %w", err))
	}
	if err := w.Queue.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close job queue: %w", err))
	}
	w.log.Info().Msg("Digest worker stopped")
	return errors.Join(errs...)
}
