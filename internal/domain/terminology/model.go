package terminology

import (
	"time"

	"github.com/google/uuid"
)

// LoincCode is a LOINC reference code that template properties and results
// may point at.
type LoincCode struct {
	ID        uuid.UUID `db:"id" json:"id"`
	LoincNum  string    `db:"loinc_num" json:"loinc_num" validate:"required,max=20"`
	ShortName *string   `db:"short_name" json:"short_name,omitempty" validate:"omitempty,max=255"`
	Component *string   `db:"component" json:"component,omitempty"`
	Property  *string   `db:"property" json:"property,omitempty" validate:"omitempty,max=50"`
	System    *string   `db:"system" json:"system,omitempty" validate:"omitempty,max=100"`
	ScaleType *string   `db:"scale_type" json:"scale_type,omitempty" validate:"omitempty,max=20"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Display returns the short name when present, falling back to the number.
func (c *LoincCode) Display() string {
	if c.ShortName != nil && *c.ShortName != "" {
		return *c.ShortName
	}
	return c.LoincNum
}
