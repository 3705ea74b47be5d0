// Package user models application users and their subscription linkage to the
// payment provider.
package user

import (
	"errors"
	"time"

	"github.com/amirasaad/tradelens/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the
	// repository.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserUnauthorized is returned when credentials do not match.
	ErrUserUnauthorized = errors.New("user unauthorized")
)

// User represents a user in the system. The Stripe fields link the user to
// their payment-provider subscription; they are written only by the webhook
// reconciliation path.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"-"`

	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `json:"-"`
	StripePriceID        string     `json:"-"`
	StripePeriodEnd      *time.Time `json:"-"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// New creates a User with a hashed password and current timestamps.
func New(username, email, password string) (*User, error) {
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if !utils.IsEmail(email) {
		return nil, errors.New("invalid email address")
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Subscribed reports whether the user has a paid subscription covering now.
// Stripe's period end is authoritative; a grace window is not applied here.
func (u *User) Subscribed() bool {
	return u.StripeSubscriptionID != "" &&
		u.StripePeriodEnd != nil &&
		u.StripePeriodEnd.After(time.Now())
}

// ValidPassword compares a plain password against the stored hash.
func (u *User) ValidPassword(password string) bool {
	return utils.CheckPasswordHash(password, u.Password)
}
