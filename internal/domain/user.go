package domain

import (
	"context"
	"time"
)

// User represents the core user model in the application domain.
// ID is the record key without the table prefix.
type User struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	ProfilePic string    `json:"profilePic"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the optional fields of a profile change. Nil means unchanged.
type ProfileUpdate struct {
	FullName   *string
	ProfilePic *string
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.ProfilePic == nil
}

// UserRepository defines the contract for user data storage operations.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	// SignUp creates the account and returns a signed session token.
	SignUp(ctx context.Context, user *User, password string) (string, error)
	// SignIn verifies the credentials and returns a signed session token.
	SignIn(ctx context.Context, email, password string) (string, *User, error)
	// Authenticate resolves a session token to its user.
	Authenticate(ctx context.Context, token string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersExcept(ctx context.Context, id string) ([]User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
}
