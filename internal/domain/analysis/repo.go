package analysis

import (
	"context"

	"github.com/google/uuid"
)

type AnalysisRepository interface {
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error)
	// UpdateDates writes the collection and print timestamps only.
	UpdateDates(ctx context.Context, a *Analysis) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Analysis, int, error)
}

type ResultRepository interface {
	// Create inserts a single result. It fails with ErrDuplicateResult when
	// the analysis already has a result with the same property name.
	Create(ctx context.Context, r *Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	UpdateValue(ctx context.Context, id uuid.UUID, value string) (*Result, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*Result, error)
	ExistingNames(ctx context.Context, analysisID uuid.UUID) (map[string]bool, error)
	// BulkCreate inserts results in one round trip. Rows whose (analysis,
	// property name) pair already exists are skipped; only inserted rows are
	// returned.
	BulkCreate(ctx context.Context, results []*Result) ([]*Result, error)
}
