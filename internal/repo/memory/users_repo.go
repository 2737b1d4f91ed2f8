package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/user"
)

// UsersRepo is the in-process user store used by STORE=memory and tests.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.items[id], nil
}

func (r *UsersRepo) SetToken(ctx context.Context, id string, token *string) error {
	_, err := r.update(id, func(u *user.User) {
		if token == nil {
			u.Token = nil
			return
		}
		t := *token
		u.Token = &t
	})
	return err
}

func (r *UsersRepo) UpdateSubscription(ctx context.Context, id string, sub user.Subscription) (user.User, error) {
	return r.update(id, func(u *user.User) { u.Subscription = sub })
}

func (r *UsersRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) (user.User, error) {
	return r.update(id, func(u *user.User) { u.AvatarURL = avatarURL })
}

func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, token string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token == "" {
		return user.User{}, user.ErrNotFound
	}

	for id, u := range r.items {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.Verify = true
			u.VerificationToken = nil
			u.UpdatedAt = time.Now().UTC()
			r.items[id] = u
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return nil
}

func (r *UsersRepo) update(id string, mutate func(*user.User)) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	mutate(&u)
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u
	return u, nil
}
