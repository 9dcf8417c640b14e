package laboratory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Laboratory struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name" validate:"required,max=150"`
	City       string    `db:"city" json:"city" validate:"required,max=100"`
	State      string    `db:"state" json:"state" validate:"required,max=100"`
	PostalCode string    `db:"postal_code" json:"postal_code" validate:"required,max=20"`
	Country    string    `db:"country" json:"country" validate:"required,max=100"`
	LogoKey    *string   `db:"logo_key" json:"logo_key,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// logoKey returns the object key a logo with the given extension is stored
// under.
func logoKey(id uuid.UUID, ext string) string {
	return fmt.Sprintf("laboratories/%s/logo%s", id, ext)
}
