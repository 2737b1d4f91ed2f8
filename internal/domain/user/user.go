package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Subscription string

const (
	SubscriptionStarter  Subscription = "starter"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

func (s Subscription) IsValid() bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already in use")
	ErrAlreadyVerified = errors.New("verification has already been passed")
)

type User struct {
	ID                string       `json:"id"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"` // never expose hash in JSON
	Subscription      Subscription `json:"subscription"`
	AvatarURL         string       `json:"avatarURL"`
	Token             *string      `json:"-"`
	Verify            bool         `json:"verify"`
	VerificationToken *string      `json:"-"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// HasSession reports whether token is the user's currently stored session.
func (u User) HasSession(token string) bool {
	return u.Token != nil && token != "" && *u.Token == token
}

// Profile is the public projection returned by the API.
type Profile struct {
	Email        string       `json:"email"`
	Subscription Subscription `json:"subscription"`
	AvatarURL    string       `json:"avatarURL"`
}

func (u User) Profile() Profile {
	return Profile{Email: u.Email, Subscription: u.Subscription, AvatarURL: u.AvatarURL}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateSubscriptionRequest struct {
	Subscription Subscription `json:"subscription" binding:"required,oneof=starter pro business"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// NormalizeEmail lowercases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New builds an unverified starter-tier user with a fresh verification token.
func New(email, passwordHash string) User {
	now := time.Now().UTC()
	email = NormalizeEmail(email)
	verificationToken := uuid.NewString()

	return User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      passwordHash,
		Subscription:      SubscriptionStarter,
		AvatarURL:         DefaultAvatarURL(email),
		Verify:            false,
		VerificationToken: &verificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
