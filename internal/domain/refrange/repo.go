package refrange

import (
	"context"

	"github.com/google/uuid"
)

type IntervalRepository interface {
	Create(ctx context.Context, iv *Interval) error
	GetByID(ctx context.Context, id uuid.UUID) (*Interval, error)
	Update(ctx context.Context, iv *Interval) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByProperty returns the property's intervals in insertion order.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Interval, error)
	// ListByProperties groups intervals per property, each in insertion order.
	ListByProperties(ctx context.Context, propertyIDs []uuid.UUID) (map[uuid.UUID][]*Interval, error)
}
