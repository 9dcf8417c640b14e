package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
)

type mockAnalysisRepo struct {
	store map[uuid.UUID]*Analysis
}

func (m *mockAnalysisRepo) Create(_ context.Context, a *Analysis) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.store[a.ID] = a
	return nil
}

func (m *mockAnalysisRepo) GetByID(_ context.Context, id uuid.UUID) (*Analysis, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockAnalysisRepo) UpdateDates(_ context.Context, a *Analysis) error {
	cur, ok := m.store[a.ID]
	if !ok {
		return ErrNotFound
	}
	cur.CollectedAt, cur.PrintedAt = a.CollectedAt, a.PrintedAt
	a.PatientID, a.TemplateID, a.CreatedAt = cur.PatientID, cur.TemplateID, cur.CreatedAt
	return nil
}

func (m *mockAnalysisRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockAnalysisRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Analysis, int, error) {
	var out []*Analysis
	for _, a := range m.store {
		out = append(out, a)
	}
	return out, len(out), nil
}

// mockResultRepo enforces the (analysis, property name) uniqueness the
// database provides.
type mockResultRepo struct {
	rows      []*Result
	bulkCalls int
}

func (m *mockResultRepo) find(analysisID uuid.UUID, name string) *Result {
	for _, r := range m.rows {
		if r.AnalysisID == analysisID && r.PropertyName == name {
			return r
		}
	}
	return nil
}

func (m *mockResultRepo) Create(_ context.Context, r *Result) error {
	if m.find(r.AnalysisID, r.PropertyName) != nil {
		return ErrDuplicateResult
	}
	r.ID = uuid.New()
	m.rows = append(m.rows, r)
	return nil
}

func (m *mockResultRepo) GetByID(_ context.Context, id uuid.UUID) (*Result, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrResultNotFound
}

func (m *mockResultRepo) UpdateValue(ctx context.Context, id uuid.UUID, value string) (*Result, error) {
	r, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Value = value
	return r, nil
}

func (m *mockResultRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return ErrResultNotFound
}

func (m *mockResultRepo) ListByAnalysis(_ context.Context, analysisID uuid.UUID) ([]*Result, error) {
	var out []*Result
	for _, r := range m.rows {
		if r.AnalysisID == analysisID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockResultRepo) ExistingNames(_ context.Context, analysisID uuid.UUID) (map[string]bool, error) {
	names := make(map[string]bool)
	for _, r := range m.rows {
		if r.AnalysisID == analysisID {
			names[r.PropertyName] = true
		}
	}
	return names, nil
}

func (m *mockResultRepo) BulkCreate(_ context.Context, results []*Result) ([]*Result, error) {
	m.bulkCalls++
	var created []*Result
	for _, r := range results {
		if m.find(r.AnalysisID, r.PropertyName) != nil {
			continue
		}
		r.ID = uuid.New()
		m.rows = append(m.rows, r)
		created = append(created, r)
	}
	return created, nil
}

func (m *mockResultRepo) names(analysisID uuid.UUID) []string {
	var out []string
	for _, r := range m.rows {
		if r.AnalysisID == analysisID {
			out = append(out, r.PropertyName)
		}
	}
	sort.Strings(out)
	return out
}

type mockPatients map[uuid.UUID]*patient.Patient

func (m mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockTemplates map[uuid.UUID]*template.Template

func (m mockTemplates) GetWithProperties(_ context.Context, id uuid.UUID) (*template.Template, error) {
	t, ok := m[id]
	if !ok {
		return nil, template.ErrNotFound
	}
	return t, nil
}
