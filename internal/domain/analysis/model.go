package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

// Analysis is one lab order for a patient, optionally built from a template.
type Analysis struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	TemplateID  *uuid.UUID `db:"template_id" json:"template_id,omitempty"`
	CollectedAt *time.Time `db:"collected_at" json:"collected_at,omitempty"`
	PrintedAt   *time.Time `db:"printed_at" json:"printed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Result holds the value recorded for one property of an analysis. Rows are
// created empty and filled in by an operator.
type Result struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	AnalysisID   uuid.UUID  `db:"analysis_id" json:"analysis_id"`
	PropertyName string     `db:"property_name" json:"property_name" validate:"required,max=100"`
	LoincCodeID  *uuid.UUID `db:"loinc_code_id" json:"loinc_code_id,omitempty"`
	Unit         *string    `db:"unit" json:"unit,omitempty" validate:"omitempty,max=20"`
	Value        string     `db:"value" json:"value" validate:"max=100"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Result) UnitString() string {
	if r.Unit == nil {
		return ""
	}
	return *r.Unit
}

// ClassifiedResult is a result together with the interval that applies to
// the analysed patient and the evaluation of its value.
type ClassifiedResult struct {
	*Result
	Interval   *refrange.Interval  `json:"interval,omitempty"`
	Range      string              `json:"range"`
	Evaluation refrange.Evaluation `json:"evaluation"`
}
