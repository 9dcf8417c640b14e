package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/lock"
)

func strPtr(s string) *string { return &s }

func interval(seq int64, cohort refrange.Cohort, sex refrange.Sex, min, max float64) *refrange.Interval {
	return &refrange.Interval{ID: uuid.New(), Seq: seq, AgeCohort: cohort, Sex: sex, Min: min, Max: max}
}

type fixture struct {
	templates mockTemplates
	patients  mockPatients
	analyses  *mockAnalysisRepo
	results   *mockResultRepo
	locker    lock.Locker
	svc       *Service
	gen       *Generator
}

func newFixture() *fixture {
	f := &fixture{
		templates: mockTemplates{},
		patients:  mockPatients{},
		analyses:  &mockAnalysisRepo{store: make(map[uuid.UUID]*Analysis)},
		results:   &mockResultRepo{},
		locker:    lock.NewMemory(),
	}
	f.build()
	return f
}

func (f *fixture) build() {
	f.gen = NewGenerator(f.templates, f.results, f.locker, time.Minute, zerolog.Nop())
	f.svc = NewService(f.analyses, f.results, f.patients, f.templates, f.gen, nil)
}

func (f *fixture) addPatient(age int, sex refrange.Sex) *patient.Patient {
	p := &patient.Patient{ID: uuid.New(), LaboratoryID: uuid.New(), Name: "Paciente", Age: age, Sex: sex}
	f.patients[p.ID] = p
	return p
}

func (f *fixture) addTemplate(format template.Format, props ...*template.Property) *template.Template {
	t := &template.Template{ID: uuid.New(), Title: "Biometría", Format: format, Properties: props}
	for i, p := range props {
		p.ID = uuid.New()
		p.TemplateID = t.ID
		p.Seq = int64(i + 1)
	}
	f.templates[t.ID] = t
	return t
}

func hemoglobin() *template.Property {
	return &template.Property{
		Name: "Hemoglobina",
		Unit: strPtr("g/dL"),
		Intervals: []*refrange.Interval{
			interval(1, refrange.CohortSenior, refrange.SexFemale, 11, 15),
			interval(2, refrange.CohortSenior, refrange.SexBoth, 10, 16),
		},
	}
}

func TestGenerate_EndToEndSeniorFemale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addPatient(70, refrange.SexFemale)
	tpl := f.addTemplate(template.FormatResults, hemoglobin())

	a := &Analysis{PatientID: p.ID, TemplateID: &tpl.ID}
	created, err := f.svc.CreateAnalysis(ctx, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 result, got %d", len(created))
	}
	r := created[0]
	if r.PropertyName != "Hemoglobina" || r.Value != "" || r.UnitString() != "g/dL" {
		t.Errorf("unexpected result: %+v", r)
	}

	cr, err := f.svc.UpdateResultValue(ctx, r.ID, "12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cr.Evaluation != refrange.InRange {
		t.Errorf("expected IN_RANGE, got %s", cr.Evaluation)
	}
	if cr.Interval == nil || cr.Interval.Sex != refrange.SexFemale || cr.Interval.Min != 11 || cr.Interval.Max != 15 {
		t.Errorf("expected FEMALE interval [11,15], got %+v", cr.Interval)
	}
	if cr.Range != "11 - 15 g/dL" {
		t.Errorf("expected range 11 - 15 g/dL, got %q", cr.Range)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addPatient(40, refrange.SexMale)
	tpl := f.addTemplate(template.FormatResults,
		&template.Property{Name: "Glucosa", Intervals: []*refrange.Interval{interval(1, refrange.CohortAdult, refrange.SexBoth, 70, 100)}},
		&template.Property{Name: "Urea", Intervals: []*refrange.Interval{interval(2, refrange.CohortAdult, refrange.SexMale, 15, 45)}},
	)

	a := &Analysis{PatientID: p.ID, TemplateID: &tpl.ID}
	if _, err := f.svc.CreateAnalysis(ctx, a); err != nil {
		t.Fatal(err)
	}
	first := f.results.names(a.ID)

	again, err := f.svc.OnAnalysisCreated(ctx, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected nothing new on second run, got %d", len(again))
	}
	if got := f.results.names(a.ID); !reflect.DeepEqual(got, first) {
		t.Errorf("expected %v after rerun, got %v", first, got)
	}
	if len(first) != 2 {
		t.Errorf("expected 2 results, got %v", first)
	}
}

func TestGenerate_JustifiedTextProducesNothing(t *testing.T) {
	f := newFixture()
	p := f.addPatient(30, refrange.SexFemale)
	tpl := f.addTemplate(template.FormatJustifiedText,
		&template.Property{Name: "A", Intervals: []*refrange.Interval{interval(1, refrange.CohortAdult, refrange.SexBoth, 0, 1)}},
		&template.Property{Name: "B", Intervals: []*refrange.Interval{interval(2, refrange.CohortAdult, refrange.SexBoth, 0, 1)}},
	)

	a := &Analysis{PatientID: p.ID, TemplateID: &tpl.ID}
	created, err := f.svc.CreateAnalysis(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 || len(f.results.rows) != 0 {
		t.Errorf("expected no results, got %d", len(f.results.rows))
	}
}

func TestGenerate_SkipsPropertyWithoutMatchingInterval(t *testing.T) {
	f := newFixture()
	p := f.addPatient(65, refrange.SexMale)
	tpl := f.addTemplate(template.FormatResults,
		&template.Property{Name: "Pediátrico", Intervals: []*refrange.Interval{interval(1, refrange.CohortChild, refrange.SexBoth, 1, 2)}},
		&template.Property{Name: "Sin rangos"},
		&template.Property{Name: "Creatinina", Intervals: []*refrange.Interval{interval(2, refrange.CohortSenior, refrange.SexBoth, 0.7, 1.3)}},
	)

	a := &Analysis{PatientID: p.ID, TemplateID: &tpl.ID}
	created, err := f.svc.CreateAnalysis(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].PropertyName != "Creatinina" {
		t.Errorf("expected only Creatinina, got %+v", created)
	}
}

func TestGenerate_NoTemplate(t *testing.T) {
	f := newFixture()
	p := f.addPatient(30, refrange.SexMale)
	created, err := f.svc.CreateAnalysis(context.Background(), &Analysis{PatientID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if created != nil || f.results.bulkCalls != 0 {
		t.Errorf("expected generation to be skipped")
	}
}

func TestGenerate_SkipsWhileLocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addPatient(70, refrange.SexFemale)
	tpl := f.addTemplate(template.FormatResults, hemoglobin())
	a := &Analysis{ID: uuid.New(), PatientID: p.ID, TemplateID: &tpl.ID}

	if _, ok, _ := f.locker.TryLock(ctx, "analysis:"+a.ID.String(), time.Minute); !ok {
		t.Fatal("expected to take lock")
	}
	created, err := f.gen.Generate(ctx, a, p)
	if err != nil {
		t.Fatal(err)
	}
	if created != nil || f.results.bulkCalls != 0 {
		t.Error("expected generation to be skipped while another run holds the lock")
	}
}

type failingLocker struct{}

func (failingLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, errors.New("redis unavailable")
}

func (failingLocker) Unlock(context.Context, string, string) error { return nil }

func TestGenerate_ProceedsWhenLockerFails(t *testing.T) {
	f := newFixture()
	f.locker = failingLocker{}
	f.build()
	p := f.addPatient(70, refrange.SexFemale)
	tpl := f.addTemplate(template.FormatResults, hemoglobin())

	created, err := f.svc.CreateAnalysis(context.Background(), &Analysis{PatientID: p.ID, TemplateID: &tpl.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Errorf("expected 1 result, got %d", len(created))
	}
}

func TestGenerate_ReleasesLock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addPatient(70, refrange.SexFemale)
	tpl := f.addTemplate(template.FormatResults, hemoglobin())
	a := &Analysis{ID: uuid.New(), PatientID: p.ID, TemplateID: &tpl.ID}

	if _, err := f.gen.Generate(ctx, a, p); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := f.locker.TryLock(ctx, "analysis:"+a.ID.String(), time.Minute); !ok {
		t.Error("expected lock to be released after generation")
	}
}

func TestStage_PreservesOrderAndSkipsExisting(t *testing.T) {
	loinc := uuid.New()
	props := []*template.Property{
		{Name: "C", Intervals: []*refrange.Interval{interval(1, refrange.CohortAdult, refrange.SexBoth, 0, 1)}},
		{Name: "A", Intervals: []*refrange.Interval{interval(2, refrange.CohortAdult, refrange.SexBoth, 0, 1)}},
		{Name: "B", LoincCodeID: &loinc, Unit: strPtr("mg/dL"), Intervals: []*refrange.Interval{interval(3, refrange.CohortAdult, refrange.SexFemale, 0, 1)}},
	}
	existing := map[string]bool{"A": true}
	staged := Stage(uuid.New(), props, refrange.CohortAdult, refrange.SexFemale, existing)

	if len(staged) != 2 || staged[0].PropertyName != "C" || staged[1].PropertyName != "B" {
		t.Fatalf("unexpected staging: %+v", staged)
	}
	if staged[1].LoincCodeID == nil || *staged[1].LoincCodeID != loinc || staged[1].UnitString() != "mg/dL" {
		t.Errorf("expected code and unit copied from property, got %+v", staged[1])
	}
	if len(existing) != 1 {
		t.Error("existing map should not be modified")
	}
}

// racingResults inserts the first staged row through the embedded mock just
// before the bulk insert, as a concurrent writer would.
type racingResults struct {
	*mockResultRepo
}

func (r racingResults) BulkCreate(ctx context.Context, results []*Result) ([]*Result, error) {
	if len(results) > 0 {
		first := *results[0]
		if _, err := r.mockResultRepo.BulkCreate(ctx, []*Result{&first}); err != nil {
			return nil, err
		}
	}
	return r.mockResultRepo.BulkCreate(ctx, results)
}

func TestGenerate_LogsConflictsSeparately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addPatient(40, refrange.SexMale)
	tpl := f.addTemplate(template.FormatResults,
		&template.Property{Name: "Glucosa", Intervals: []*refrange.Interval{interval(1, refrange.CohortAdult, refrange.SexBoth, 70, 100)}},
		&template.Property{Name: "Urea", Intervals: []*refrange.Interval{interval(2, refrange.CohortAdult, refrange.SexBoth, 15, 45)}},
		&template.Property{Name: "Creatinina", Intervals: []*refrange.Interval{interval(3, refrange.CohortAdult, refrange.SexBoth, 0.6, 1.2)}},
	)
	a := &Analysis{ID: uuid.New(), PatientID: p.ID, TemplateID: &tpl.ID}
	f.results.rows = append(f.results.rows, &Result{ID: uuid.New(), AnalysisID: a.ID, PropertyName: "Creatinina"})

	var buf bytes.Buffer
	gen := NewGenerator(f.templates, racingResults{f.results}, f.locker, time.Minute, zerolog.New(&buf))
	created, err := gen.Generate(ctx, a, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 || created[0].PropertyName != "Urea" {
		t.Fatalf("expected only Urea to be created, got %v", created)
	}

	var entry struct {
		Message        string `json:"message"`
		Created        int    `json:"created"`
		AlreadyPresent int    `json:"already_present"`
		Conflicted     int    `json:"conflicted"`
		Unresolved     int    `json:"unresolved"`
	}
	found := false
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry.Message == "results generated" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a 'results generated' entry, got %s", buf.String())
	}
	if entry.Created != 1 {
		t.Errorf("expected created 1, got %d", entry.Created)
	}
	if entry.AlreadyPresent != 1 {
		t.Errorf("expected already_present 1, got %d", entry.AlreadyPresent)
	}
	if entry.Conflicted != 1 {
		t.Errorf("expected conflicted 1, got %d", entry.Conflicted)
	}
	if entry.Unresolved != 0 {
		t.Errorf("expected unresolved 0, got %d", entry.Unresolved)
	}
}
