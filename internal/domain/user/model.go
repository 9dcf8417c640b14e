package user

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

var validRoles = map[string]bool{
	RoleAdmin:    true,
	RoleOperator: true,
}

// User is a staff member. The password hash never leaves the service layer.
type User struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	Name          string      `db:"name" json:"name" validate:"required,max=150"`
	Email         string      `db:"email" json:"email" validate:"required,email,max=254"`
	Phone         string      `db:"phone" json:"phone" validate:"max=20"`
	IsActive      bool        `db:"is_active" json:"is_active"`
	Role          string      `db:"role" json:"role"`
	PasswordHash  string      `db:"password_hash" json:"-"`
	LaboratoryIDs []uuid.UUID `db:"-" json:"laboratory_ids"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// CreateRequest is the payload for creating a user.
type CreateRequest struct {
	User
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

func (u *User) laboratoryStrings() []string {
	out := make([]string, len(u.LaboratoryIDs))
	for i, id := range u.LaboratoryIDs {
		out[i] = id.String()
	}
	return out
}
