package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/contacthub/internal/domain/contact"
)

type ContactsRepo struct {
	mu    sync.RWMutex
	items map[string]contact.Contact
}

func NewContactsRepo() *ContactsRepo {
	return &ContactsRepo{
		items: make(map[string]contact.Contact),
	}
}

func (r *ContactsRepo) Create(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// (owner, email) is unique
	for _, existing := range r.items {
		if existing.OwnerID == c.OwnerID && existing.Email == c.Email {
			return contact.Contact{}, contact.ErrDuplicate
		}
	}

	r.items[c.ID] = c
	return c, nil
}

func (r *ContactsRepo) GetByID(ctx context.Context, id string) (contact.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return contact.Contact{}, contact.ErrNotFound
	}
	return c, nil
}

func (r *ContactsRepo) List(ctx context.Context, filter contact.ListFilter) ([]contact.Contact, int, error) {
	r.mu.RLock()
	matched := make([]contact.Contact, 0)
	for _, c := range r.items {
		if c.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Favorite != nil && c.Favorite != *filter.Favorite {
			continue
		}
		matched = append(matched, c)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)

	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total || end < start {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *ContactsRepo) Update(ctx context.Context, scope contact.Scope, req contact.UpdateContactRequest) (contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[scope.ID]
	if !ok || c.OwnerID != scope.OwnerID {
		return contact.Contact{}, contact.ErrNotFound
	}

	for id, other := range r.items {
		if id != c.ID && other.OwnerID == c.OwnerID && other.Email == req.Email {
			return contact.Contact{}, contact.ErrDuplicate
		}
	}

	c.Name = req.Name
	c.Email = req.Email
	c.Phone = req.Phone
	c.Favorite = req.Favorite
	c.UpdatedAt = time.Now().UTC()
	r.items[c.ID] = c

	return c, nil
}

func (r *ContactsRepo) SetFavorite(ctx context.Context, scope contact.Scope, favorite bool) (contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[scope.ID]
	if !ok || c.OwnerID != scope.OwnerID {
		return contact.Contact{}, contact.ErrNotFound
	}

	c.Favorite = favorite
	c.UpdatedAt = time.Now().UTC()
	r.items[c.ID] = c

	return c, nil
}

func (r *ContactsRepo) Delete(ctx context.Context, scope contact.Scope) (contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[scope.ID]
	if !ok || c.OwnerID != scope.OwnerID {
		return contact.Contact{}, contact.ErrNotFound
	}

	delete(r.items, scope.ID)
	return c, nil
}
