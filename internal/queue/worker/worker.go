package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/job"
	"github.com/geocoder89/contacthub/internal/notifications"
	"github.com/geocoder89/contacthub/internal/observability"
	"golang.org/x/sync/errgroup"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Waiter blocks until new work is signalled or the timeout passes.
type Waiter interface {
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	Concurrency  int
	LockTTL      time.Duration
	JobTimeout   time.Duration
	// PublicBaseURL prefixes verification links in outgoing mail.
	PublicBaseURL string
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	waiter   Waiter
	log      *slog.Logger
	prom     *observability.Prom
	metrics  *observability.JobMetrics

	backoff func(attempt int) time.Duration
	now     func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, log *slog.Logger) *Worker {
	if cfg.WorkerID == "" {
		host, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		log:      log,
		metrics:  observability.NewJobMetrics(),
		backoff:  ExponentialBackoff,
		now:      time.Now,
	}
}

// WithWaiter lets idle loops block on a wake-up signal instead of sleeping
// the full poll interval.
func (w *Worker) WithWaiter(waiter Waiter) *Worker {
	w.waiter = waiter
	return w
}

func (w *Worker) WithProm(prom *observability.Prom) *Worker {
	w.prom = prom
	return w
}

func (w *Worker) Metrics() *observability.JobMetrics {
	return w.metrics
}

// Run drives Concurrency claim loops plus the stale-lock reaper until ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.InfoContext(ctx, "worker_started",
		"worker_id", w.cfg.WorkerID,
		"concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval.String(),
	)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Concurrency; i++ {
		slot := fmt.Sprintf("%s/%d", w.cfg.WorkerID, i)
		g.Go(func() error {
			w.loop(gctx, slot)
			return nil
		})
	}

	g.Go(func() error {
		w.reap(gctx)
		return nil
	})

	err := g.Wait()
	w.log.Info("worker_stopped", "worker_id", w.cfg.WorkerID)
	return err
}

func (w *Worker) loop(ctx context.Context, slot string) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.ProcessOne(ctx, slot)
		if err != nil && ctx.Err() == nil {
			w.log.ErrorContext(ctx, "worker_process_error", "slot", slot, "err", err)
		}
		if processed {
			continue
		}

		w.idle(ctx)
	}
}

func (w *Worker) idle(ctx context.Context) {
	if w.waiter != nil {
		if _, err := w.waiter.Wait(ctx, w.cfg.PollInterval); err == nil || ctx.Err() != nil {
			return
		}
		// signal source is down; fall back to plain polling
	}

	t := time.NewTimer(w.cfg.PollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) reap(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					w.log.ErrorContext(ctx, "worker_requeue_stale_error", "err", err)
				}
				continue
			}
			if n > 0 {
				w.log.WarnContext(ctx, "worker_requeued_stale_jobs", "count", n)
			}
		}
	}
}

func (w *Worker) IsReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
