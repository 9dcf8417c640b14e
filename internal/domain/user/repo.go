package user

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	// Create inserts the user with its password hash and laboratory links.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update writes profile fields and replaces the laboratory links. The
	// password hash is left untouched.
	Update(ctx context.Context, u *User) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error)
}
