package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/philios33/predictor2-backend-sub000/internal/jobs"
)

// Loop timing. An empty queue is polled with a short sleep; a drain that
// keeps finding work past the warning threshold logs a warning and
// re-warns periodically, since an ever-growing queue usually means the
// workers are outnumbered by the producers.
const (
	idlePollInterval = 500 * time.Millisecond
	drainWarnAfter   = 2 * time.Minute
	drainRewarnEvery = 2 * time.Minute
)

// Run is the production drain loop: pop one job, process it to
// completion, acknowledge, repeat. On context cancellation the in-flight
// job is finished and acknowledged before returning, so no artifact write
// is cut short.
//
// Errors from job processing propagate out; the process supervisor is
// expected to log and restart the worker, and the bus's redelivery of the
// unacknowledged job is the recovery mechanism.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("worker starting")

	var drainStart time.Time
	var lastWarn time.Time

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping: context cancelled")
			return ctx.Err()
		default:
		}

		job, err := c.bus.ConsumeNext(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			drainStart = time.Time{}
			select {
			case <-ctx.Done():
				slog.Info("worker stopping: context cancelled")
				return ctx.Err()
			case <-time.After(idlePollInterval):
			}
			continue
		}

		if drainStart.IsZero() {
			drainStart = time.Now()
			lastWarn = time.Time{}
		}
		if elapsed := time.Since(drainStart); elapsed > drainWarnAfter {
			if lastWarn.IsZero() || time.Since(lastWarn) > drainRewarnEvery {
				slog.Warn("queue drain running long", "elapsed", elapsed)
				lastWarn = time.Now()
			}
		}

		// The in-flight job always runs to completion, even during
		// shutdown: builders write exactly one artifact as their terminal
		// step, so finishing the job keeps writes whole.
		id, err := c.ProcessJob(context.WithoutCancel(ctx), job, time.Now())
		if err != nil {
			logJobFailure(job, err)
			return err
		}
		if err := c.bus.Acknowledge(context.WithoutCancel(ctx), job.ID); err != nil {
			return err
		}
		slog.Debug("job acknowledged", "job", job.ID, "trace", id)
	}
}

func logJobFailure(job *jobs.Job, err error) {
	slog.Error("job processing failed",
		"error", err,
		"job", job.ID,
		"type", job.Type,
		"meta", string(job.Meta),
	)
}
