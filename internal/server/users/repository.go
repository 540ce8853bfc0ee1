// Package users declares the user model and its persistence contract.
package users

import (
	"context"
)

// Repository defines storage operations over users. Implementations must
// return common.ErrorNotFound for absent rows and common.ErrConflict when a
// unique constraint (email, username) rejects an insert.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Delete(ctx context.Context, id string) error
}
