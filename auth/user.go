package auth

import (
	"context"
	"time"
)

type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. Emails are unique, case-insensitive.
// Lookups return (nil, nil) for unknown keys. CreateUser returns
// generic.ErrAlreadyExists on a duplicate email.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}
