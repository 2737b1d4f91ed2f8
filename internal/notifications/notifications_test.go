package notifications

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []VerificationEmail
	err   error
	block bool
}

func (f *fakeNotifier) SendVerificationEmail(ctx context.Context, in VerificationEmail) error {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func TestVerificationLink(t *testing.T) {
	got := VerificationLink("https://contacts.example.com/", "abc-123")
	want := "https://contacts.example.com/api/users/verify/abc-123"
	if got != want {
		t.Fatalf("VerificationLink = %q, want %q", got, want)
	}
}

func TestLogNotifier_LogsLink(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.SendVerificationEmail(context.Background(), VerificationEmail{To: "a@x.com", Link: "http://x/verify/t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "http://x/verify/t") {
		t.Fatalf("log line missing link: %s", buf.String())
	}
}

func TestDirectDispatcher_BuildsLink(t *testing.T) {
	inner := &fakeNotifier{}
	d := NewDirectDispatcher(inner, "http://localhost:3000")

	if err := d.DispatchVerification(context.Background(), "u1", "a@x.com", "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("expected one send, got %d", len(inner.calls))
	}
	if inner.calls[0].Link != "http://localhost:3000/api/users/verify/tok" || inner.calls[0].To != "a@x.com" {
		t.Fatalf("unexpected mail: %+v", inner.calls[0])
	}
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSMTPNotifier_SendsMessage(t *testing.T) {
	d := &fakeDialer{}
	n := &SMTPNotifier{from: "no-reply@contacthub.local", dialer: d}

	err := n.SendVerificationEmail(context.Background(), VerificationEmail{To: "a@x.com", Link: "http://x/api/users/verify/t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(d.sent))
	}

	m := d.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "a@x.com" {
		t.Fatalf("To header = %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != verificationSubject {
		t.Fatalf("Subject header = %v", got)
	}
}

func TestSMTPNotifier_WrapsError(t *testing.T) {
	boom := errors.New("relay refused")
	n := &SMTPNotifier{from: "x@y", dialer: &fakeDialer{err: boom}}

	err := n.SendVerificationEmail(context.Background(), VerificationEmail{To: "a@x.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped relay error, got %v", err)
	}
}

func TestProtectedNotifier_TimesOut(t *testing.T) {
	inner := &fakeNotifier{block: true}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 20 * time.Millisecond})

	err := n.SendVerificationEmail(context.Background(), VerificationEmail{To: "a@x.com"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestProtectedNotifier_OpensAndRecovers(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		Timeout:          time.Second,
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx := context.Background()
	in := VerificationEmail{To: "a@x.com"}

	_ = n.SendVerificationEmail(ctx, in)
	_ = n.SendVerificationEmail(ctx, in)

	if n.State() != stateOpen {
		t.Fatalf("state = %s, want open", n.State())
	}
	if err := n.SendVerificationEmail(ctx, in); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("open circuit must not call inner, calls=%d", len(inner.calls))
	}

	// after cooldown one trial call goes through and closes the circuit
	clock = clock.Add(2 * time.Minute)
	inner.err = nil

	if err := n.SendVerificationEmail(ctx, in); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if n.State() != stateClosed {
		t.Fatalf("state = %s, want closed", n.State())
	}
}

func TestNewForDelivery(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	n, err := NewForDelivery("log", SMTPConfig{}, log)
	if err != nil {
		t.Fatalf("log delivery: %v", err)
	}
	if _, ok := n.inner.(*LogNotifier); !ok {
		t.Fatalf("inner = %T, want *LogNotifier", n.inner)
	}

	n, err = NewForDelivery("smtp", SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "apikey", Password: "k"}, log)
	if err != nil {
		t.Fatalf("smtp delivery: %v", err)
	}
	if _, ok := n.inner.(*SMTPNotifier); !ok {
		t.Fatalf("inner = %T, want *SMTPNotifier", n.inner)
	}

	if _, err := NewForDelivery("pigeon", SMTPConfig{}, log); err == nil {
		t.Fatalf("expected error for unknown delivery")
	}
}
