package refrange

import (
	"time"

	"github.com/google/uuid"
)

// Interval is the normal range of a template property for one cohort and
// sex applicability. Seq records insertion order and breaks resolution ties.
type Interval struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Seq        int64     `db:"seq" json:"seq"`
	PropertyID uuid.UUID `db:"property_id" json:"property_id"`
	AgeCohort  Cohort    `db:"age_cohort" json:"age_cohort" validate:"required"`
	Sex        Sex       `db:"sex" json:"sex"`
	Min        float64   `db:"min_value" json:"min_value"`
	Max        float64   `db:"max_value" json:"max_value"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether v lies in [Min, Max].
func (iv *Interval) Contains(v float64) bool {
	return iv.Min <= v && v <= iv.Max
}
