package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

type Patient struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	LaboratoryID uuid.UUID    `db:"laboratory_id" json:"laboratory_id"`
	Name         string       `db:"name" json:"name" validate:"required,max=150"`
	Age          int          `db:"age" json:"age" validate:"gte=0,max=150"`
	Sex          refrange.Sex `db:"sex" json:"sex" validate:"required"`
	Phone        string       `db:"phone" json:"phone" validate:"required,max=20"`
	Email        *string      `db:"email" json:"email,omitempty" validate:"omitempty,email,max=254"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Cohort classifies the patient for reference interval selection.
func (p *Patient) Cohort() refrange.Cohort {
	return refrange.Classify(p.Age)
}
