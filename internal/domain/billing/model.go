package billing

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
	StatusPending Status = "PENDING"
)

var validStatuses = map[Status]bool{
	StatusPaid:    true,
	StatusOverdue: true,
	StatusPending: true,
}

// Payment is a staff member's subscription payment. PaidOn and DueOn are
// calendar dates; their time of day is ignored.
type Payment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	PaidOn    time.Time `db:"paid_on" json:"paid_on"`
	DueOn     time.Time `db:"due_on" json:"due_on"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether a pending payment's due date is before today.
func (p *Payment) IsOverdue(today time.Time) bool {
	return p.Status == StatusPending && truncateDay(p.DueOn).Before(truncateDay(today))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
