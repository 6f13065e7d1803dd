package core

import (
	"context"
	"time"
)

// User represents an authenticated system user.
type User struct {
	ID           int
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// Identity returns the user as the acting identity passed to wizard calls.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.DisplayName}
}

// UserService provides user lookup operations.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)
}
