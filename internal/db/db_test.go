package db

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/geocoder89/contacthub/internal/db/migrations"
	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/security"
)

func TestMigrations_AreEmbeddedAndAnnotated(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 3 {
		t.Fatalf("expected at least 3 migrations, got %v", names)
	}

	for _, name := range names {
		b, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		body := string(b)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}

type fakeSeedStore struct {
	existing map[string]user.User
	created  []user.User
}

func (f *fakeSeedStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if u, ok := f.existing[email]; ok {
		return u, nil
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeSeedStore) Create(ctx context.Context, u user.User) (user.User, error) {
	f.created = append(f.created, u)
	return u, nil
}

func TestEnsureSeedUser_CreatesVerifiedUser(t *testing.T) {
	store := &fakeSeedStore{existing: map[string]user.User{}}

	if err := EnsureSeedUser(context.Background(), store, "Dev@Example.com", "secret1"); err != nil {
		t.Fatalf("EnsureSeedUser: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected one user created, got %d", len(store.created))
	}

	u := store.created[0]
	if u.Email != "dev@example.com" {
		t.Fatalf("email = %q, want normalized", u.Email)
	}
	if !u.Verify || u.VerificationToken != nil {
		t.Fatalf("seed user should be verified without a token")
	}
	if !security.CheckPassword(u.PasswordHash, "secret1") {
		t.Fatalf("stored hash does not match password")
	}
}

func TestEnsureSeedUser_ExistingIsNoop(t *testing.T) {
	store := &fakeSeedStore{existing: map[string]user.User{"dev@example.com": {ID: "u1"}}}

	if err := EnsureSeedUser(context.Background(), store, "dev@example.com", "secret1"); err != nil {
		t.Fatalf("EnsureSeedUser: %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected no user created")
	}
}

func TestEnsureSeedUser_EmptyCredentials(t *testing.T) {
	store := &fakeSeedStore{}

	if err := EnsureSeedUser(context.Background(), store, "", ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

type failingSeedStore struct{ fakeSeedStore }

func (f *failingSeedStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return user.User{}, errors.New("db down")
}

func TestEnsureSeedUser_LookupError(t *testing.T) {
	if err := EnsureSeedUser(context.Background(), &failingSeedStore{}, "a@x.com", "secret1"); err == nil {
		t.Fatalf("expected error")
	}
}
