package report

import (
	"time"

	"github.com/google/uuid"
)

// Report records that an analysis was issued, and by whom. GeneratedBy is
// cleared when the user is deleted.
type Report struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	AnalysisID  uuid.UUID  `db:"analysis_id" json:"analysis_id"`
	GeneratedBy *uuid.UUID `db:"generated_by" json:"generated_by,omitempty"`
	GeneratedAt time.Time  `db:"generated_at" json:"generated_at"`
}
