package laboratory

import (
	"context"

	"github.com/google/uuid"
)

type LaboratoryRepository interface {
	Create(ctx context.Context, l *Laboratory) error
	GetByID(ctx context.Context, id uuid.UUID) (*Laboratory, error)
	Update(ctx context.Context, l *Laboratory) error
	// SetLogo records the object key of the current logo; nil clears it.
	SetLogo(ctx context.Context, id uuid.UUID, key *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Laboratory, int, error)
}
