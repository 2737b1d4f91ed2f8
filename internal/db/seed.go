package db

import (
	"context"
	"errors"

	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/security"
)

type SeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureSeedUser creates a verified user with the given credentials unless
// one already exists. Empty credentials are a no-op.
func EnsureSeedUser(ctx context.Context, users SeedStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}

	u := user.New(email, hash)
	u.Verify = true
	u.VerificationToken = nil

	_, err = users.Create(ctx, u)
	if errors.Is(err, user.ErrEmailTaken) {
		// another instance seeded it first
		return nil
	}
	return err
}
