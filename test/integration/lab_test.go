//go:build integration

package integration

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/analysis"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/laboratory"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
)

type fixture struct {
	patient  *patient.Patient
	template *template.Template
	props    map[string]*template.Property
}

// seedHematology creates a 35 year old female patient and a template with
// three properties: one with adult intervals, one with only a child interval
// and one with none.
func seedHematology(t *testing.T, ctx context.Context, s *stack) *fixture {
	t.Helper()

	lab := &laboratory.Laboratory{
		Name: "Laboratorio Central", City: "Monterrey", State: "NL",
		PostalCode: "64000", Country: "MX",
	}
	if err := s.labs.Create(ctx, lab); err != nil {
		t.Fatalf("create laboratory: %v", err)
	}

	p := &patient.Patient{
		LaboratoryID: lab.ID, Name: "Ana Torres", Age: 35,
		Sex: refrange.SexFemale, Phone: "8181234567",
	}
	if err := s.patients.CreatePatient(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}

	tpl := &template.Template{Title: "Biometria hematica", Format: template.FormatResults}
	if err := s.templates.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	f := &fixture{patient: p, template: tpl, props: map[string]*template.Property{}}
	for _, name := range []string{"Hemoglobina", "Leucocitos", "Observaciones"} {
		prop := &template.Property{TemplateID: tpl.ID, Name: name, Unit: ptrStr("g/dL")}
		if err := s.templates.CreateProperty(ctx, prop); err != nil {
			t.Fatalf("create property %s: %v", name, err)
		}
		f.props[name] = prop
	}

	intervals := []*refrange.Interval{
		{PropertyID: f.props["Hemoglobina"].ID, AgeCohort: refrange.CohortAdult, Sex: refrange.SexBoth, Min: 11, Max: 17},
		{PropertyID: f.props["Hemoglobina"].ID, AgeCohort: refrange.CohortAdult, Sex: refrange.SexFemale, Min: 12, Max: 16},
		{PropertyID: f.props["Leucocitos"].ID, AgeCohort: refrange.CohortChild, Sex: refrange.SexBoth, Min: 5, Max: 15},
	}
	for _, iv := range intervals {
		if err := s.refranges.CreateInterval(ctx, iv); err != nil {
			t.Fatalf("create interval: %v", err)
		}
	}
	return f
}

func TestAnalysisLifecycle(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)
	s := newStack()
	f := seedHematology(t, ctx, s)

	a := &analysis.Analysis{PatientID: f.patient.ID, TemplateID: &f.template.ID}
	created, err := s.analyses.CreateAnalysis(ctx, a)
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	t.Run("GeneratesOnlyResolvableProperties", func(t *testing.T) {
		if len(created) != 1 {
			t.Fatalf("expected 1 generated result, got %d", len(created))
		}
		if created[0].PropertyName != "Hemoglobina" {
			t.Errorf("expected Hemoglobina, got %s", created[0].PropertyName)
		}
		if created[0].Value != "" {
			t.Errorf("expected empty value, got %q", created[0].Value)
		}
	})

	t.Run("RegenerationIsIdempotent", func(t *testing.T) {
		again, err := s.analyses.GenerateMissingResults(ctx, a.ID)
		if err != nil {
			t.Fatalf("regenerate: %v", err)
		}
		if len(again) != 0 {
			t.Errorf("expected no new results, got %d", len(again))
		}
	})

	t.Run("DuplicatePropertyRejected", func(t *testing.T) {
		err := s.analyses.AddResult(ctx, &analysis.Result{AnalysisID: a.ID, PropertyName: "Hemoglobina"})
		if !errors.Is(err, analysis.ErrDuplicateResult) {
			t.Errorf("expected ErrDuplicateResult, got %v", err)
		}
	})

	t.Run("ClassifiesAgainstExactSexInterval", func(t *testing.T) {
		cr, err := s.analyses.UpdateResultValue(ctx, created[0].ID, "16.5")
		if err != nil {
			t.Fatalf("update value: %v", err)
		}
		if cr.Evaluation != refrange.OutOfRange {
			t.Errorf("expected OUT_OF_RANGE against 12-16, got %s", cr.Evaluation)
		}
		if cr.Range != "12 - 16 g/dL" {
			t.Errorf("expected range '12 - 16 g/dL', got %q", cr.Range)
		}

		cr, err = s.analyses.UpdateResultValue(ctx, created[0].ID, "13.2")
		if err != nil {
			t.Fatalf("update value: %v", err)
		}
		if cr.Evaluation != refrange.InRange {
			t.Errorf("expected IN_RANGE, got %s", cr.Evaluation)
		}

		cr, err = s.analyses.UpdateResultValue(ctx, created[0].ID, "13,2")
		if err != nil {
			t.Fatalf("update value: %v", err)
		}
		if cr.Evaluation != refrange.NonEvaluable {
			t.Errorf("expected NON_EVALUABLE for a comma value, got %s", cr.Evaluation)
		}
	})

	t.Run("ManualResultIsNonEvaluable", func(t *testing.T) {
		r := &analysis.Result{AnalysisID: a.ID, PropertyName: "Comentario", Value: "muestra hemolizada"}
		if err := s.analyses.AddResult(ctx, r); err != nil {
			t.Fatalf("add result: %v", err)
		}
		cr, err := s.analyses.ClassifyResult(ctx, r.ID)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if cr.Evaluation != refrange.NonEvaluable {
			t.Errorf("expected NON_EVALUABLE, got %s", cr.Evaluation)
		}
		if cr.Range != "-" {
			t.Errorf("expected '-', got %q", cr.Range)
		}
	})

	t.Run("ReportExport", func(t *testing.T) {
		rep, err := s.reports.GenerateReport(ctx, a.ID, nil)
		if err != nil {
			t.Fatalf("generate report: %v", err)
		}
		data, err := s.reports.Export(ctx, rep.ID)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("PK")) {
			t.Error("expected an xlsx (zip) payload")
		}
	})
}

func TestResultBulkCreateSkipsConflicts(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)
	s := newStack()
	f := seedHematology(t, ctx, s)

	a := &analysis.Analysis{PatientID: f.patient.ID, TemplateID: &f.template.ID}
	if _, err := s.analyses.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	repo := analysis.NewResultRepoPG(globalPool)
	created, err := repo.BulkCreate(ctx, []*analysis.Result{
		{AnalysisID: a.ID, PropertyName: "Hemoglobina"},
		{AnalysisID: a.ID, PropertyName: "Hematocrito"},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created result, got %d", len(created))
	}
	if created[0].PropertyName != "Hematocrito" {
		t.Errorf("expected Hematocrito, got %s", created[0].PropertyName)
	}
	if created[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}

	var n int
	err = globalPool.QueryRow(ctx,
		"SELECT count(*) FROM analysis_result WHERE analysis_id = $1 AND property_name = 'Hemoglobina'",
		a.ID).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 Hemoglobina row, got %d", n)
	}
}

func TestConcurrentRegenerationCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)
	s := newStack()
	f := seedHematology(t, ctx, s)

	a := &analysis.Analysis{PatientID: f.patient.ID, TemplateID: &f.template.ID}
	if _, err := s.analyses.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("create analysis: %v", err)
	}

	prop := &template.Property{TemplateID: f.template.ID, Name: "Plaquetas", Unit: ptrStr("10^3/uL")}
	if err := s.templates.CreateProperty(ctx, prop); err != nil {
		t.Fatalf("create property: %v", err)
	}
	iv := &refrange.Interval{PropertyID: prop.ID, AgeCohort: refrange.CohortAdult, Sex: refrange.SexBoth, Min: 150, Max: 450}
	if err := s.refranges.CreateInterval(ctx, iv); err != nil {
		t.Fatalf("create interval: %v", err)
	}

	// Each stack holds its own in-memory lock, so only the store constraint
	// keeps the two runs from inserting the same property.
	stacks := []*stack{newStack(), newStack(), newStack(), newStack()}
	counts := make([]int, len(stacks))
	errs := make([]error, len(stacks))
	var wg sync.WaitGroup
	for i, st := range stacks {
		wg.Add(1)
		go func(i int, st *stack) {
			defer wg.Done()
			got, err := st.analyses.GenerateMissingResults(ctx, a.ID)
			counts[i], errs[i] = len(got), err
		}(i, st)
	}
	wg.Wait()

	total := 0
	for i := range stacks {
		if errs[i] != nil {
			t.Errorf("regenerate %d: %v", i, errs[i])
		}
		total += counts[i]
	}
	if total != 1 {
		t.Errorf("expected 1 result created across runs, got %d", total)
	}

	var n int
	err := globalPool.QueryRow(ctx,
		"SELECT count(*) FROM analysis_result WHERE analysis_id = $1 AND property_name = 'Plaquetas'",
		a.ID).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 Plaquetas row, got %d", n)
	}
}

func TestAnalysisWithoutTemplate(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)
	s := newStack()
	f := seedHematology(t, ctx, s)

	a := &analysis.Analysis{PatientID: f.patient.ID}
	created, err := s.analyses.CreateAnalysis(ctx, a)
	if err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("expected no results without a template, got %d", len(created))
	}
}

func TestAnalysisUnknownPatient(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)
	s := newStack()

	_, err := s.analyses.CreateAnalysis(ctx, &analysis.Analysis{PatientID: uuid.New()})
	if !errors.Is(err, analysis.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}

	var n int
	if err := globalPool.QueryRow(ctx, "SELECT count(*) FROM analysis").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no analysis rows, got %d", n)
	}
}
