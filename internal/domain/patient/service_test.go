package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

type mockPatientRepo struct {
	store    map[uuid.UUID]*Patient
	analyzed map[uuid.UUID]bool
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{store: make(map[uuid.UUID]*Patient), analyzed: make(map[uuid.UUID]bool)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) HasAnalyses(_ context.Context, id uuid.UUID) (bool, error) {
	return m.analyzed[id], nil
}

func validPatient() *Patient {
	return &Patient{
		LaboratoryID: uuid.New(),
		Name:         "María López",
		Age:          70,
		Sex:          refrange.SexFemale,
		Phone:        "5551234567",
	}
}

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	p := validPatient()
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Cohort() != refrange.CohortSenior {
		t.Errorf("expected SENIOR, got %s", p.Cohort())
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	bad := "not-an-email"
	tests := []struct {
		name   string
		mutate func(p *Patient)
	}{
		{"missing name", func(p *Patient) { p.Name = "  " }},
		{"negative age", func(p *Patient) { p.Age = -1 }},
		{"sex BOTH", func(p *Patient) { p.Sex = refrange.SexBoth }},
		{"missing sex", func(p *Patient) { p.Sex = "" }},
		{"missing laboratory", func(p *Patient) { p.LaboratoryID = uuid.Nil }},
		{"bad email", func(p *Patient) { p.Email = &bad }},
		{"missing phone", func(p *Patient) { p.Phone = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPatient()
			tt.mutate(p)
			if err := svc.CreatePatient(context.Background(), p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreatePatient_BlankEmailCleared(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	blank := "  "
	p := validPatient()
	p.Email = &blank
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Email != nil {
		t.Error("expected blank email to be cleared")
	}
}

func TestUpdatePatient_DemographicsLockedAfterAnalysis(t *testing.T) {
	repo := newMockPatientRepo()
	svc := NewService(repo)
	ctx := context.Background()
	p := validPatient()
	_ = svc.CreatePatient(ctx, p)
	repo.analyzed[p.ID] = true

	older := *p
	older.Age = 71
	if err := svc.UpdatePatient(ctx, &older); !errors.Is(err, ErrDemographicsLocked) {
		t.Errorf("expected ErrDemographicsLocked, got %v", err)
	}

	renamed := *p
	renamed.Name = "María L. Pérez"
	if err := svc.UpdatePatient(ctx, &renamed); err != nil {
		t.Errorf("expected name change to succeed, got %v", err)
	}
}

func TestUpdatePatient_DemographicsFreeWithoutAnalyses(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	ctx := context.Background()
	p := validPatient()
	_ = svc.CreatePatient(ctx, p)

	upd := *p
	upd.Sex = refrange.SexMale
	upd.Age = 30
	if err := svc.UpdatePatient(ctx, &upd); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	svc := NewService(newMockPatientRepo())
	p := validPatient()
	p.ID = uuid.New()
	if err := svc.UpdatePatient(context.Background(), p); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
