package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error)
	// MarkOverdue flips PENDING payments due before today to OVERDUE and
	// returns how many changed.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}
