package template

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

type mockTemplateRepo struct {
	store map[uuid.UUID]*Template
}

func (m *mockTemplateRepo) Create(_ context.Context, t *Template) error {
	for _, existing := range m.store {
		if existing.Title == t.Title {
			return ErrDuplicateTitle
		}
	}
	t.ID = uuid.New()
	m.store[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*Template, error) {
	t, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTemplateRepo) Update(_ context.Context, t *Template) error {
	if _, ok := m.store[t.ID]; !ok {
		return ErrNotFound
	}
	m.store[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockTemplateRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*Template, int, error) {
	var out []*Template
	for _, t := range m.store {
		out = append(out, t)
	}
	return out, len(out), nil
}

type mockPropertyRepo struct {
	store map[uuid.UUID]*Property
	seq   int64
}

func (m *mockPropertyRepo) Create(_ context.Context, p *Property) error {
	for _, existing := range m.store {
		if existing.TemplateID == p.TemplateID && existing.Name == p.Name {
			return ErrDuplicateProperty
		}
	}
	p.ID = uuid.New()
	m.seq++
	p.Seq = m.seq
	m.store[p.ID] = p
	return nil
}

func (m *mockPropertyRepo) GetByID(_ context.Context, id uuid.UUID) (*Property, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}

func (m *mockPropertyRepo) Update(_ context.Context, p *Property) error {
	cur, ok := m.store[p.ID]
	if !ok {
		return ErrPropertyNotFound
	}
	p.TemplateID, p.Seq = cur.TemplateID, cur.Seq
	m.store[p.ID] = p
	return nil
}

func (m *mockPropertyRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrPropertyNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockPropertyRepo) ListByTemplate(_ context.Context, templateID uuid.UUID) ([]*Property, error) {
	var out []*Property
	for _, p := range m.store {
		if p.TemplateID == templateID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type mockIntervalRepo struct {
	items []*refrange.Interval
}

func (m *mockIntervalRepo) Create(_ context.Context, iv *refrange.Interval) error {
	iv.ID = uuid.New()
	iv.Seq = int64(len(m.items) + 1)
	m.items = append(m.items, iv)
	return nil
}

func (m *mockIntervalRepo) GetByID(_ context.Context, id uuid.UUID) (*refrange.Interval, error) {
	for _, iv := range m.items {
		if iv.ID == id {
			return iv, nil
		}
	}
	return nil, refrange.ErrNotFound
}

func (m *mockIntervalRepo) Update(context.Context, *refrange.Interval) error { return nil }
func (m *mockIntervalRepo) Delete(context.Context, uuid.UUID) error          { return nil }

func (m *mockIntervalRepo) ListByProperty(_ context.Context, propertyID uuid.UUID) ([]*refrange.Interval, error) {
	var out []*refrange.Interval
	for _, iv := range m.items {
		if iv.PropertyID == propertyID {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *mockIntervalRepo) ListByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*refrange.Interval, error) {
	out := make(map[uuid.UUID][]*refrange.Interval)
	for _, id := range ids {
		items, _ := m.ListByProperty(ctx, id)
		if len(items) > 0 {
			out[id] = items
		}
	}
	return out, nil
}

func newTestService() (*Service, *mockIntervalRepo) {
	ivs := &mockIntervalRepo{}
	svc := NewService(
		&mockTemplateRepo{store: make(map[uuid.UUID]*Template)},
		&mockPropertyRepo{store: make(map[uuid.UUID]*Property)},
		ivs,
	)
	return svc, ivs
}

func strPtr(s string) *string { return &s }

func TestCreateTemplate_DefaultsFormat(t *testing.T) {
	svc, _ := newTestService()
	tpl := &Template{Title: "  Biometría  "}
	if err := svc.CreateTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Format != FormatResults {
		t.Errorf("expected RESULTS, got %s", tpl.Format)
	}
	if tpl.Title != "Biometría" {
		t.Errorf("expected trimmed title, got %q", tpl.Title)
	}
}

func TestCreateTemplate_Validation(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.CreateTemplate(context.Background(), &Template{}); err == nil {
		t.Error("expected error for missing title")
	}
	if err := svc.CreateTemplate(context.Background(), &Template{Title: "X", Format: "PDF"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestCreateTemplate_DuplicateTitle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_ = svc.CreateTemplate(ctx, &Template{Title: "Química"})
	if err := svc.CreateTemplate(ctx, &Template{Title: "Química"}); !errors.Is(err, ErrDuplicateTitle) {
		t.Errorf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestGeneratesResults(t *testing.T) {
	if (&Template{Format: FormatJustifiedText}).GeneratesResults() {
		t.Error("justified text templates should not generate results")
	}
	if !(&Template{Format: FormatImagesResults}).GeneratesResults() {
		t.Error("images+results templates should generate results")
	}
}

func TestCreateProperty(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tpl := &Template{Title: "Biometría"}
	_ = svc.CreateTemplate(ctx, tpl)

	p := &Property{TemplateID: tpl.ID, Name: " Hemoglobina ", Unit: strPtr(" g/dL ")}
	if err := svc.CreateProperty(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Hemoglobina" || p.UnitString() != "g/dL" {
		t.Errorf("expected trimmed values, got %q %q", p.Name, p.UnitString())
	}

	blankUnit := &Property{TemplateID: tpl.ID, Name: "Hematocrito", Unit: strPtr("  ")}
	if err := svc.CreateProperty(ctx, blankUnit); err != nil {
		t.Fatal(err)
	}
	if blankUnit.Unit != nil {
		t.Error("expected blank unit to be cleared")
	}

	dup := &Property{TemplateID: tpl.ID, Name: "Hemoglobina"}
	if err := svc.CreateProperty(ctx, dup); !errors.Is(err, ErrDuplicateProperty) {
		t.Errorf("expected ErrDuplicateProperty, got %v", err)
	}
	if err := svc.CreateProperty(ctx, &Property{Name: "X"}); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestGetWithProperties_OrdersAndAttachesIntervals(t *testing.T) {
	svc, ivs := newTestService()
	ctx := context.Background()
	tpl := &Template{Title: "Biometría"}
	_ = svc.CreateTemplate(ctx, tpl)

	names := []string{"Hemoglobina", "Hematocrito", "Leucocitos"}
	var props []*Property
	for _, n := range names {
		p := &Property{TemplateID: tpl.ID, Name: n}
		if err := svc.CreateProperty(ctx, p); err != nil {
			t.Fatal(err)
		}
		props = append(props, p)
	}
	_ = ivs.Create(ctx, &refrange.Interval{PropertyID: props[0].ID, AgeCohort: refrange.CohortSenior, Sex: refrange.SexFemale, Min: 11, Max: 15})
	_ = ivs.Create(ctx, &refrange.Interval{PropertyID: props[0].ID, AgeCohort: refrange.CohortSenior, Sex: refrange.SexBoth, Min: 10, Max: 16})

	got, err := svc.GetWithProperties(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(got.Properties))
	}
	for i, n := range names {
		if got.Properties[i].Name != n {
			t.Errorf("position %d: expected %s, got %s", i, n, got.Properties[i].Name)
		}
	}
	if len(got.Properties[0].Intervals) != 2 {
		t.Errorf("expected 2 intervals on first property, got %d", len(got.Properties[0].Intervals))
	}
	if len(got.Properties[1].Intervals) != 0 {
		t.Errorf("expected no intervals on second property")
	}
}

func TestGetWithProperties_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.GetWithProperties(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListProperties_UnknownTemplate(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ListProperties(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
