package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/job"
	"github.com/geocoder89/contacthub/internal/jobs"
	"github.com/geocoder89/contacthub/internal/notifications"
)

type fakeRepo struct {
	mu sync.Mutex

	queue []job.Job

	done        []string
	failed      map[string]string
	rescheduled map[string]time.Time
	requeued    int
}

func newFakeRepo(js ...job.Job) *fakeRepo {
	return &fakeRepo{
		queue:       js,
		failed:      map[string]string{},
		rescheduled: map[string]time.Time{},
	}
}

func (f *fakeRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}
	j := f.queue[0]
	f.queue = f.queue[1:]
	j.Status = job.StatusProcessing
	j.LockedBy = &workerID
	return j, nil
}

func (f *fakeRepo) MarkDone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, id)
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = errMsg
	return nil
}

func (f *fakeRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued++
	return 0, nil
}

func (f *fakeRepo) doneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.done)
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notifications.VerificationEmail
	errFn func() error
}

func (f *fakeNotifier) SendVerificationEmail(ctx context.Context, in notifications.VerificationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errFn != nil {
		if err := f.errFn(); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, in)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func verificationJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	raw, err := jobs.EncodePayload(jobs.JobSendVerificationEmail, jobs.VerificationEmailPayload{
		UserID: "u1",
		Email:  "a@x.com",
		Token:  "tok-1",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	j := job.New(job.CreateRequest{
		Type:        string(jobs.JobSendVerificationEmail),
		Payload:     raw,
		MaxAttempts: maxAttempts,
	})
	j.Attempts = attempts
	return j
}

func newTestWorker(repo JobsRepository, n notifications.Notifier) *Worker {
	w := New(Config{WorkerID: "test", PublicBaseURL: "http://localhost:3000"}, repo, n, discardLogger())
	w.backoff = func(int) time.Duration { return time.Minute }
	return w
}

func TestProcessOne_SendsVerificationMail(t *testing.T) {
	j := verificationJob(t, 0, 3)
	repo := newFakeRepo(j)
	n := &fakeNotifier{}
	w := newTestWorker(repo, n)

	processed, err := w.ProcessOne(context.Background(), "test/0")
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected a job to be processed")
	}

	if len(n.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(n.sent))
	}
	if n.sent[0].Link != "http://localhost:3000/api/users/verify/tok-1" {
		t.Fatalf("unexpected link %q", n.sent[0].Link)
	}
	if len(repo.done) != 1 || repo.done[0] != j.ID {
		t.Fatalf("job not marked done: %v", repo.done)
	}
	if s := w.Metrics().Snapshot(); s.MailsSent != 1 || s.Done != 1 {
		t.Fatalf("unexpected metrics: %+v", s)
	}
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := newTestWorker(newFakeRepo(), &fakeNotifier{})

	processed, err := w.ProcessOne(context.Background(), "test/0")
	if err != nil || processed {
		t.Fatalf("expected (false, nil), got (%v, %v)", processed, err)
	}
}

func TestProcessOne_TransientErrorReschedules(t *testing.T) {
	j := verificationJob(t, 0, 3)
	repo := newFakeRepo(j)
	n := &fakeNotifier{errFn: func() error { return errors.New("smtp 421") }}
	w := newTestWorker(repo, n)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if _, err := w.ProcessOne(context.Background(), "test/0"); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	runAt, ok := repo.rescheduled[j.ID]
	if !ok {
		t.Fatalf("expected job to be rescheduled")
	}
	if !runAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("runAt = %s, want %s", runAt, now.Add(time.Minute))
	}
	if _, failed := repo.failed[j.ID]; failed {
		t.Fatalf("transient error must not fail the job")
	}
}

func TestProcessOne_LastAttemptFails(t *testing.T) {
	j := verificationJob(t, 2, 3)
	repo := newFakeRepo(j)
	n := &fakeNotifier{errFn: func() error { return errors.New("smtp 421") }}
	w := newTestWorker(repo, n)

	if _, err := w.ProcessOne(context.Background(), "test/0"); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if _, failed := repo.failed[j.ID]; !failed {
		t.Fatalf("expected job to be marked failed")
	}
	if w.Metrics().Snapshot().DeadLettered != 1 {
		t.Fatalf("expected dead letter count 1")
	}
}

func TestProcessOne_BadPayloadFailsImmediately(t *testing.T) {
	j := job.New(job.CreateRequest{
		Type:        string(jobs.JobSendVerificationEmail),
		Payload:     json.RawMessage(`{"userId":"u1"}`),
		MaxAttempts: 5,
	})
	repo := newFakeRepo(j)
	n := &fakeNotifier{}
	w := newTestWorker(repo, n)

	if _, err := w.ProcessOne(context.Background(), "test/0"); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if _, failed := repo.failed[j.ID]; !failed {
		t.Fatalf("expected invalid payload to fail without retry")
	}
	if len(repo.rescheduled) != 0 {
		t.Fatalf("invalid payload must not be rescheduled")
	}
	if len(n.sent) != 0 {
		t.Fatalf("no mail should be sent")
	}
}

type chanWaiter struct{ ch chan struct{} }

func (c chanWaiter) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	select {
	case <-c.ch:
		return true, nil
	case <-time.After(timeout):
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	repo := newFakeRepo(verificationJob(t, 0, 3), verificationJob(t, 0, 3), verificationJob(t, 0, 3))
	n := &fakeNotifier{}

	w := New(Config{
		WorkerID:     "test",
		PollInterval: 10 * time.Millisecond,
		Concurrency:  2,
		LockTTL:      time.Hour,
	}, repo, n, discardLogger()).WithWaiter(chanWaiter{ch: make(chan struct{})})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for repo.doneCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("worker did not drain queue, done=%d", repo.doneCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !w.IsReady() {
		t.Fatalf("worker should report ready while running")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if w.IsReady() {
		t.Fatalf("worker should not be ready after Run returns")
	}
}

func TestHealthHandler(t *testing.T) {
	w := newTestWorker(newFakeRepo(), &fakeNotifier{})
	h := w.HealthHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before Run = %d, want 503", rec.Code)
	}

	w.setReady(true)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
}

func TestExponentialBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		min     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{20, 5 * time.Minute},
	}

	for _, c := range cases {
		got := ExponentialBackoff(c.attempt)
		if got < c.min || got >= c.min+250*time.Millisecond {
			t.Fatalf("ExponentialBackoff(%d) = %s, want [%s, %s)", c.attempt, got, c.min, c.min+250*time.Millisecond)
		}
	}
}
