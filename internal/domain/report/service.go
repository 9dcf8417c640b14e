package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/analysis"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
)

// ResultSource lists an analysis with its classified results.
type ResultSource interface {
	ListClassifiedResults(ctx context.Context, analysisID uuid.UUID) (*analysis.Analysis, []*analysis.ClassifiedResult, error)
}

type PatientSource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type TemplateSource interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*template.Template, error)
}

type Service struct {
	repo      ReportRepository
	results   ResultSource
	patients  PatientSource
	templates TemplateSource
	logger    zerolog.Logger
}

func NewService(repo ReportRepository, results ResultSource, patients PatientSource, templates TemplateSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		results:   results,
		patients:  patients,
		templates: templates,
		logger:    logger.With().Str("component", "report").Logger(),
	}
}

// GenerateReport records that the analysis was issued by generatedBy, which
// may be nil for system-issued reports.
func (s *Service) GenerateReport(ctx context.Context, analysisID uuid.UUID, generatedBy *uuid.UUID) (*Report, error) {
	if _, _, err := s.results.ListClassifiedResults(ctx, analysisID); err != nil {
		return nil, err
	}
	rep := &Report{AnalysisID: analysisID, GeneratedBy: generatedBy}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, err
	}
	s.logger.Info().Str("report_id", rep.ID.String()).Str("analysis_id", analysisID.String()).Msg("report generated")
	return rep, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SearchReports(ctx context.Context, params map[string]string, limit, offset int) ([]*Report, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// BuildDocument gathers what the export of a report shows.
func (s *Service) BuildDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a, results, err := s.results.ListClassifiedResults(ctx, rep.AnalysisID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	p, err := s.patients.GetPatient(ctx, a.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	doc := &Document{Report: rep, Analysis: a, Patient: p, Results: results}
	if a.TemplateID != nil {
		tpl, err := s.templates.GetTemplate(ctx, *a.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		doc.TemplateTitle = tpl.Title
	}
	return doc, nil
}

// Export renders the report as an XLSX workbook.
func (s *Service) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	doc, err := s.BuildDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := RenderXLSX(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", id.String()).Msg("render report")
		return nil, err
	}
	s.logger.Info().Str("report_id", id.String()).Int("results", len(doc.Results)).Int("bytes", len(out)).Msg("report exported")
	return out, nil
}
