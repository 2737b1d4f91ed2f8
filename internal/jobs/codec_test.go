package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/job"
)

func TestEncodeDecode_VerificationEmail(t *testing.T) {
	payload := VerificationEmailPayload{
		UserID:      "user-123",
		Email:       "a@x.com",
		Token:       "tok-456",
		RequestedAt: time.Now().UTC().Truncate(time.Second),
	}

	b, err := EncodePayload(JobSendVerificationEmail, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	j := job.New(job.CreateRequest{Type: string(JobSendVerificationEmail), Payload: b})

	decoded, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(VerificationEmailPayload)
	if !ok {
		t.Fatalf("expected VerificationEmailPayload, got %T", decoded)
	}

	if p.Token != payload.Token || p.Email != payload.Email {
		t.Fatalf("decoded payload mismatch: %+v", p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobSendVerificationEmail, struct{ Foo string }{Foo: "bar"})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayload_UnknownType(t *testing.T) {
	_, err := EncodePayload(JobType("nope"), VerificationEmailPayload{})
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	_, err := DecodePayload(job.Job{Type: string(JobSendVerificationEmail)})
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestValidatePayload_RequiredFields(t *testing.T) {
	err := ValidatePayload(JobSendVerificationEmail, VerificationEmailPayload{UserID: "u1", Email: "a@x.com"})
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

type fakeJobCreator struct {
	created []job.CreateRequest
	err     error
}

func (f *fakeJobCreator) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	if f.err != nil {
		return job.Job{}, f.err
	}
	f.created = append(f.created, req)
	return job.New(req), nil
}

type fakeWaker struct {
	calls int
	err   error
}

func (f *fakeWaker) Nudge(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestVerificationEnqueuer_CreatesJobAndNudges(t *testing.T) {
	creator := &fakeJobCreator{}
	waker := &fakeWaker{err: errors.New("redis down")}

	e := NewVerificationEnqueuer(creator, waker, nil)

	if err := e.DispatchVerification(context.Background(), "u1", "a@x.com", "tok"); err != nil {
		t.Fatalf("DispatchVerification error: %v", err)
	}

	if len(creator.created) != 1 {
		t.Fatalf("expected 1 job, got %d", len(creator.created))
	}
	if creator.created[0].Type != string(JobSendVerificationEmail) {
		t.Fatalf("unexpected job type %q", creator.created[0].Type)
	}
	if waker.calls != 1 {
		t.Fatalf("expected one nudge, got %d", waker.calls)
	}
}

func TestVerificationEnqueuer_CreateError(t *testing.T) {
	e := NewVerificationEnqueuer(&fakeJobCreator{err: errors.New("db down")}, nil, nil)

	if err := e.DispatchVerification(context.Background(), "u1", "a@x.com", "tok"); err == nil {
		t.Fatalf("expected error")
	}
}
