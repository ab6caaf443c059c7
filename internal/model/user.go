package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	List(ctx context.Context) ([]User, error)
}

// Role enumerates the fixed set of user roles.
type Role string

const (
	RoleIdeator    Role = "ideator"
	RoleConsultant Role = "consultant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleIdeator, RoleConsultant:
		return true
	}
	return false
}

// User represents a stored user account. PasswordHash holds the bcrypt
// digest; the plaintext password is never persisted. Users are immutable
// after creation.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
