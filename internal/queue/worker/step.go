package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/job"
	"github.com/geocoder89/contacthub/internal/jobs"
	"github.com/geocoder89/contacthub/internal/notifications"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

// ProcessOne claims and runs at most one job. It reports whether a job was
// claimed.
func (w *Worker) ProcessOne(ctx context.Context, slot string) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, slot)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.metrics.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := w.now()
	execCtx, cancelExec := context.WithTimeout(ctx, w.cfg.JobTimeout)
	err = w.execute(execCtx, j)
	cancelExec()
	elapsed := w.now().Sub(start)
	w.metrics.ObserveDuration(elapsed)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observe(j.Type, result, elapsed)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		// the lock expires and the reaper requeues it
		return true, fmt.Errorf("mark done %s: %w", j.ID, err)
	}

	w.metrics.IncDone()
	w.observe(j.Type, "done", elapsed)
	w.log.InfoContext(ctx, "job_done", "job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	if err := jobs.ValidatePayload(jobs.JobType(j.Type), payload); err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	switch p := payload.(type) {
	case jobs.VerificationEmailPayload:
		err := w.notifier.SendVerificationEmail(ctx, notifications.VerificationEmail{
			To:    p.Email,
			Token: p.Token,
			Link:  notifications.VerificationLink(w.cfg.PublicBaseURL, p.Token),
		})
		if err != nil {
			return err
		}
		w.metrics.IncMailsSent()
		return nil
	default:
		return fmt.Errorf("%w: no handler for %s", errPermanent, j.Type)
	}
}

// handleFailure reschedules with backoff or, once attempts run out or the
// error is permanent, marks the job failed. It returns the outcome label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	attempt := j.Attempts + 1
	msg := cause.Error()

	if errors.Is(cause, errPermanent) || attempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.ErrorContext(ctx, "job_mark_failed_error", "job_id", j.ID, "err", err)
		}
		w.metrics.IncDeadLettered()
		w.log.ErrorContext(ctx, "job_failed",
			"job_id", j.ID,
			"job_type", j.Type,
			"attempt", attempt,
			"err", msg,
		)
		return "failed"
	}

	runAt := w.now().UTC().Add(w.backoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.ErrorContext(ctx, "job_reschedule_error", "job_id", j.ID, "err", err)
	}
	w.metrics.IncRetried()
	w.log.WarnContext(ctx, "job_retry_scheduled",
		"job_id", j.ID,
		"job_type", j.Type,
		"attempt", attempt,
		"run_at", runAt,
		"err", msg,
	)
	return "retry"
}

func (w *Worker) observe(jobType, result string, elapsed time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(elapsed.Seconds())
}
