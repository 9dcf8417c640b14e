package terminology

import (
	"context"

	"github.com/google/uuid"
)

type LoincRepository interface {
	Create(ctx context.Context, c *LoincCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*LoincCode, error)
	GetByNum(ctx context.Context, num string) (*LoincCode, error)
	Update(ctx context.Context, c *LoincCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search matches query against number, short name, component and property.
	// An empty query lists every code.
	Search(ctx context.Context, query string, limit, offset int) ([]*LoincCode, int, error)
}
