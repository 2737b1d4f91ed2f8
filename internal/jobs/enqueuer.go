package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/job"
)

type JobCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

// Waker signals idle workers that new work exists. Optional.
type Waker interface {
	Nudge(ctx context.Context) error
}

// VerificationEnqueuer puts verification mails on the jobs outbox instead of
// sending them inline.
type VerificationEnqueuer struct {
	jobs  JobCreator
	waker Waker
	log   *slog.Logger
}

func NewVerificationEnqueuer(jobs JobCreator, waker Waker, log *slog.Logger) *VerificationEnqueuer {
	if log == nil {
		log = slog.Default()
	}
	return &VerificationEnqueuer{jobs: jobs, waker: waker, log: log}
}

func (e *VerificationEnqueuer) DispatchVerification(ctx context.Context, userID, email, token string) error {
	payload := VerificationEmailPayload{
		UserID:      userID,
		Email:       email,
		Token:       token,
		RequestedAt: time.Now().UTC(),
	}

	if err := ValidatePayload(JobSendVerificationEmail, payload); err != nil {
		return err
	}

	raw, err := EncodePayload(JobSendVerificationEmail, payload)
	if err != nil {
		return err
	}

	uid := userID
	j, err := e.jobs.Create(ctx, job.CreateRequest{
		Type:        string(JobSendVerificationEmail),
		Payload:     raw,
		MaxAttempts: 10,
		UserID:      &uid,
	})
	if err != nil {
		return fmt.Errorf("enqueue verification email: %w", err)
	}

	// the worker still polls, so a lost nudge only delays delivery
	if e.waker != nil {
		if err := e.waker.Nudge(ctx); err != nil {
			e.log.WarnContext(ctx, "job_nudge_failed", "job_id", j.ID, "err", err)
		}
	}

	e.log.DebugContext(ctx, "verification_email_enqueued", "job_id", j.ID, "user_id", userID)
	return nil
}
