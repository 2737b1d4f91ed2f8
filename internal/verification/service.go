// Package verification runs the email-verification workflow: resending the
// token minted at signup and consuming it exactly once.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/contacthub/internal/domain/user"
)

type Store interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ConsumeVerificationToken(ctx context.Context, token string) (user.User, error)
}

// Dispatcher delivers (or queues) the verification mail for a user.
type Dispatcher interface {
	DispatchVerification(ctx context.Context, userID, email, token string) error
}

type Service struct {
	users      Store
	dispatcher Dispatcher
	log        *slog.Logger
}

func NewService(users Store, dispatcher Dispatcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, dispatcher: dispatcher, log: log}
}

// Send dispatches the verification mail for a freshly created user.
func (s *Service) Send(ctx context.Context, u user.User) error {
	if u.Verify {
		return user.ErrAlreadyVerified
	}
	if u.VerificationToken == nil || *u.VerificationToken == "" {
		return fmt.Errorf("user %s has no verification token", u.ID)
	}

	if err := s.dispatcher.DispatchVerification(ctx, u.ID, u.Email, *u.VerificationToken); err != nil {
		return fmt.Errorf("dispatch verification: %w", err)
	}
	return nil
}

// Resend re-dispatches the existing token; it never rotates it.
func (s *Service) Resend(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return err
	}

	return s.Send(ctx, u)
}

// Confirm consumes token. A second call with the same token reports
// user.ErrNotFound.
func (s *Service) Confirm(ctx context.Context, token string) (user.User, error) {
	if token == "" {
		return user.User{}, user.ErrNotFound
	}

	u, err := s.users.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.log.ErrorContext(ctx, "verification_confirm_error", "err", err)
		}
		return user.User{}, err
	}

	s.log.InfoContext(ctx, "user_verified", "user_id", u.ID)
	return u, nil
}
