package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phoneNumber"`
	AvatarURL    *string   `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	// ErrDuplicateKey is returned by Repository.Create when the store's
	// unique constraint on email rejects the insert.
	ErrDuplicateKey = errors.New("duplicate email key")
	ErrMissingHash  = errors.New("password hash is required")
)

// NormalizeEmail is applied before every lookup and insert so the unique
// constraint sees one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return ErrMissingHash
	}
	return nil
}

// Repository owns the persisted representation of users.
// FindByEmail returns (nil, nil) when no user matches.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, draft *User) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
