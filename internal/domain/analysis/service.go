package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

// PatientSource loads the patient an analysis belongs to.
type PatientSource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// TxRunner runs fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func noTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Service struct {
	analyses  AnalysisRepository
	results   ResultRepository
	patients  PatientSource
	templates TemplateSource
	generator *Generator
	withTx    TxRunner
}

func NewService(analyses AnalysisRepository, results ResultRepository, patients PatientSource,
	templates TemplateSource, generator *Generator, withTx TxRunner) *Service {
	if withTx == nil {
		withTx = noTx
	}
	return &Service{
		analyses:  analyses,
		results:   results,
		patients:  patients,
		templates: templates,
		generator: generator,
		withTx:    withTx,
	}
}

func (s *Service) loadPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetPatient(ctx, id)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

// CreateAnalysis persists a and generates its pending results in the same
// transaction. This is the only place new analyses enter the system, so
// generation runs once per analysis.
func (s *Service) CreateAnalysis(ctx context.Context, a *Analysis) ([]*Result, error) {
	if a.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	p, err := s.loadPatient(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}

	var created []*Result
	err = s.withTx(ctx, func(ctx context.Context) error {
		if err := s.analyses.Create(ctx, a); err != nil {
			return err
		}
		res, err := s.onAnalysisCreated(ctx, a, p)
		created = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// OnAnalysisCreated generates the pending results of a stored analysis.
func (s *Service) OnAnalysisCreated(ctx context.Context, a *Analysis) ([]*Result, error) {
	p, err := s.loadPatient(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}
	return s.onAnalysisCreated(ctx, a, p)
}

func (s *Service) onAnalysisCreated(ctx context.Context, a *Analysis, p *patient.Patient) ([]*Result, error) {
	return s.generator.Generate(ctx, a, p)
}

// GenerateMissingResults re-runs generation for an existing analysis. Only
// properties without a result are added, which covers properties added to
// the template after the analysis was created.
func (s *Service) GenerateMissingResults(ctx context.Context, analysisID uuid.UUID) ([]*Result, error) {
	a, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return s.OnAnalysisCreated(ctx, a)
}

func (s *Service) GetAnalysis(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	return s.analyses.GetByID(ctx, id)
}

func (s *Service) UpdateAnalysisDates(ctx context.Context, a *Analysis) error {
	if a.CollectedAt != nil && a.PrintedAt != nil && a.PrintedAt.Before(*a.CollectedAt) {
		return fmt.Errorf("printed_at cannot be before collected_at")
	}
	return s.analyses.UpdateDates(ctx, a)
}

func (s *Service) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	return s.analyses.Delete(ctx, id)
}

func (s *Service) SearchAnalyses(ctx context.Context, params map[string]string, limit, offset int) ([]*Analysis, int, error) {
	return s.analyses.Search(ctx, params, limit, offset)
}

// AddResult records a result outside automatic generation.
func (s *Service) AddResult(ctx context.Context, r *Result) error {
	r.PropertyName = strings.TrimSpace(r.PropertyName)
	r.Value = strings.TrimSpace(r.Value)
	if err := validation.Struct(r); err != nil {
		return err
	}
	if _, err := s.analyses.GetByID(ctx, r.AnalysisID); err != nil {
		return err
	}
	return s.results.Create(ctx, r)
}

func (s *Service) DeleteResult(ctx context.Context, id uuid.UUID) error {
	return s.results.Delete(ctx, id)
}

// Classifier evaluates results of one analysis.
type Classifier struct {
	cohort     refrange.Cohort
	sex        refrange.Sex
	properties map[string]*template.Property
}

// NewClassifier prepares classification for a patient against tpl. A nil
// template leaves every result without interval.
func NewClassifier(p *patient.Patient, tpl *template.Template) *Classifier {
	c := &Classifier{
		cohort:     refrange.Classify(p.Age),
		sex:        p.Sex,
		properties: make(map[string]*template.Property),
	}
	if tpl != nil {
		for _, prop := range tpl.Properties {
			c.properties[prop.Name] = prop
		}
	}
	return c
}

// Classify resolves the interval for r's property and evaluates its value.
// Missing properties and intervals yield a non-evaluable result.
func (c *Classifier) Classify(r *Result) *ClassifiedResult {
	var iv *refrange.Interval
	unit := r.UnitString()
	if prop, ok := c.properties[r.PropertyName]; ok {
		iv = refrange.Resolve(prop.Intervals, c.cohort, c.sex)
		if unit == "" {
			unit = prop.UnitString()
		}
	}
	return &ClassifiedResult{
		Result:     r,
		Interval:   iv,
		Range:      refrange.FormatRange(iv, unit),
		Evaluation: refrange.Evaluate(r.Value, iv),
	}
}

func (s *Service) classifierFor(ctx context.Context, a *Analysis) (*Classifier, error) {
	p, err := s.loadPatient(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}
	var tpl *template.Template
	if a.TemplateID != nil {
		tpl, err = s.templates.GetWithProperties(ctx, *a.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
	}
	return NewClassifier(p, tpl), nil
}

// ClassifyResult re-resolves the interval of a stored result and evaluates
// its current value.
func (s *Service) ClassifyResult(ctx context.Context, resultID uuid.UUID) (*ClassifiedResult, error) {
	r, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	a, err := s.analyses.GetByID(ctx, r.AnalysisID)
	if err != nil {
		return nil, err
	}
	c, err := s.classifierFor(ctx, a)
	if err != nil {
		return nil, err
	}
	return c.Classify(r), nil
}

// ListClassifiedResults classifies every result of an analysis.
func (s *Service) ListClassifiedResults(ctx context.Context, analysisID uuid.UUID) (*Analysis, []*ClassifiedResult, error) {
	a, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.results.ListByAnalysis(ctx, analysisID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.classifierFor(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*ClassifiedResult, len(results))
	for i, r := range results {
		out[i] = c.Classify(r)
	}
	return a, out, nil
}

// UpdateResultValue stores the operator-entered value and returns its
// classification.
func (s *Service) UpdateResultValue(ctx context.Context, resultID uuid.UUID, value string) (*ClassifiedResult, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > 100 {
		return nil, fmt.Errorf("value must be at most 100 characters")
	}
	if _, err := s.results.UpdateValue(ctx, resultID, value); err != nil {
		return nil, err
	}
	return s.ClassifyResult(ctx, resultID)
}
