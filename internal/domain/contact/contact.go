package contact

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("contact not found")
	ErrDuplicate = errors.New("contact already exists")
)

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	OwnerID   string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner satisfies access.Owned.
func (c Contact) Owner() string {
	return c.OwnerID
}

// ListFilter scopes a listing to one owner. Favorite is nil when the caller
// did not ask to filter on it.
type ListFilter struct {
	OwnerID  string
	Favorite *bool
	Limit    int
	Offset   int
}

// Scope addresses a single contact on behalf of its owner.
type Scope struct {
	ID      string
	OwnerID string
}

// CreateContactRequest doubles as the PUT body: a full replacement.
type CreateContactRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,phone"`
	Favorite bool   `json:"favorite"`
}

type UpdateContactRequest = CreateContactRequest

type UpdateFavoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

func NewFromCreateRequest(ownerID string, req CreateContactRequest) Contact {
	now := time.Now().UTC()

	return Contact{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Favorite:  req.Favorite,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
