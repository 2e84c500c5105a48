package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/jobs"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/notifier"
)

// DigestTask is the name the digest publisher is registered under.
const DigestTask = "digest"

// PublishDigests enqueues one digest job per recipient for the day of now.
// Every recipient is attempted; failures are joined.
func PublishDigests(ctx context.Context, pub jobs.Publisher, recipients []string, now time.Time) error {
	day := now.Format(time.DateOnly)

	var errs []error
	for _, r := range recipients {
		job := &jobs.DigestJob{Recipient: r, DigestDate: day}
		if err := pub.PublishDigest(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("publish digest for %s: %w", r, err))
			continue
		}
		lg := logger.FromContext(ctx)
		lg.Debug().Str("job_id", job.JobID).Str("recipient", r).Msg("Digest job published")
	}
	return errors.Join(errs...)
}

// DigestPublisher returns a task suitable for Register that publishes the
// day's digests using clock for the reference time.
func DigestPublisher(pub jobs.Publisher, recipients []string, clock func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return PublishDigests(ctx, pub, recipients, clock())
	}
}

// DigestHandler builds the worker-side handler: it reads the recipient's
// ledger with the backend's own credentials, forecasts every budget and sends
// the formatted overview.
type DigestHandler struct {
	Ledger   ledger.Provider
	Service  *budget.Service
	Notifier notifier.Notifier
}

// Handle implements jobs.JobHandler.
func (h *DigestHandler) Handle(ctx context.Context, job jobs.Job) error {
	dj, ok := job.(*jobs.DigestJob)
	if !ok {
		return fmt.Errorf("DigestHandler: unsupported job type %s", job.GetType())
	}

	log := logger.FromContext(ctx).With().Str("job_id", dj.JobID).Str("recipient", dj.Recipient).Logger()

	store, err := h.Ledger.StoreFor(ctx, identity.User{Email: dj.Recipient})
	if err != nil {
		return fmt.Errorf("DigestHandler: resolve ledger: %w", err)
	}

	rows, err := h.Service.BudgetStatus(ctx, store)
	if err != nil {
		return fmt.Errorf("DigestHandler: budget status: %w", err)
	}

	msg := notifier.FormatDigest(dj.Recipient, dj.DigestDate, rows)
	if err := h.Notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("DigestHandler: send: %w", err)
	}

	log.Info().Int("budgets", len(rows)).Str("subject", msg.Subject).Msg("Digest sent")
	return nil
}
