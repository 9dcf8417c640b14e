package template

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

type Format string

const (
	FormatResults       Format = "RESULTS"
	FormatImagesResults Format = "IMAGES_RESULTS"
	FormatJustifiedText Format = "JUSTIFIED_TEXT"
)

var validFormats = map[Format]bool{
	FormatResults: true, FormatImagesResults: true, FormatJustifiedText: true,
}

// Template is a named set of measurable properties.
type Template struct {
	ID                   uuid.UUID   `db:"id" json:"id"`
	Title                string      `db:"title" json:"title" validate:"required,max=150"`
	Format               Format      `db:"format" json:"format"`
	DefaultJustifiedText *string     `db:"default_justified_text" json:"default_justified_text,omitempty"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
	Properties           []*Property `db:"-" json:"properties,omitempty"`
}

// GeneratesResults reports whether analyses built from t get pending result
// rows. Justified-text templates carry prose instead of measurements.
func (t *Template) GeneratesResults() bool {
	return t.Format != FormatJustifiedText
}

// Property is one measurable quantity of a template. Seq records insertion
// order.
type Property struct {
	ID          uuid.UUID            `db:"id" json:"id"`
	Seq         int64                `db:"seq" json:"seq"`
	TemplateID  uuid.UUID            `db:"template_id" json:"template_id"`
	Name        string               `db:"name" json:"name" validate:"required,max=100"`
	LoincCodeID *uuid.UUID           `db:"loinc_code_id" json:"loinc_code_id,omitempty"`
	Unit        *string              `db:"unit" json:"unit,omitempty" validate:"omitempty,max=20"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	Intervals   []*refrange.Interval `db:"-" json:"intervals,omitempty"`
}

// UnitString returns the unit or "".
func (p *Property) UnitString() string {
	if p.Unit == nil {
		return ""
	}
	return *p.Unit
}
