package template

import (
	"context"

	"github.com/google/uuid"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Template, int, error)
}

type PropertyRepository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*Property, error)
	Update(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByTemplate returns the template's properties in insertion order.
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*Property, error)
}
