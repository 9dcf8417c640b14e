package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/lock"
)

// DefaultLockTTL bounds how long one generation run may hold its lease.
const DefaultLockTTL = 30 * time.Second

// TemplateSource loads a template with its properties and their intervals in
// insertion order.
type TemplateSource interface {
	GetWithProperties(ctx context.Context, id uuid.UUID) (*template.Template, error)
}

// Generator creates the pending result rows of a new analysis: one empty
// result per template property that resolves to a reference interval for
// the patient.
type Generator struct {
	templates TemplateSource
	results   ResultRepository
	locker    lock.Locker
	lockTTL   time.Duration
	logger    zerolog.Logger
}

func NewGenerator(templates TemplateSource, results ResultRepository, locker lock.Locker, lockTTL time.Duration, logger zerolog.Logger) *Generator {
	if locker == nil {
		locker = lock.NewMemory()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Generator{
		templates: templates,
		results:   results,
		locker:    locker,
		lockTTL:   lockTTL,
		logger:    logger.With().Str("component", "result-generator").Logger(),
	}
}

// Generate stages and persists the missing results of a. Analyses without a
// template, or built from a justified-text template, get none. Properties
// without an applicable interval and properties that already have a result
// are skipped. Running it again for the same analysis creates nothing new.
func (g *Generator) Generate(ctx context.Context, a *Analysis, p *patient.Patient) ([]*Result, error) {
	if a.TemplateID == nil {
		return nil, nil
	}
	log := g.logger.With().Str("analysis_id", a.ID.String()).Logger()

	key := "analysis:" + a.ID.String()
	token, ok, err := g.locker.TryLock(ctx, key, g.lockTTL)
	switch {
	case err != nil:
		// The store-level uniqueness constraint still prevents duplicates.
		log.Warn().Err(err).Msg("generation lock unavailable, continuing without it")
	case !ok:
		log.Warn().Msg("generation already running for analysis, skipping")
		return nil, nil
	default:
		defer func() {
			if err := g.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil && !errors.Is(err, lock.ErrNotOwner) {
				log.Warn().Err(err).Msg("release generation lock")
			}
		}()
	}

	tpl, err := g.templates.GetWithProperties(ctx, *a.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if !tpl.GeneratesResults() {
		log.Debug().Str("template", tpl.Title).Msg("template format has no generated results")
		return nil, nil
	}

	existing, err := g.results.ExistingNames(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load existing results: %w", err)
	}

	staged := Stage(a.ID, tpl.Properties, refrange.Classify(p.Age), p.Sex, existing)
	present := countExisting(tpl.Properties, existing)

	created, err := g.results.BulkCreate(ctx, staged)
	if err != nil {
		log.Error().Err(err).Msg("persist generated results")
		return nil, fmt.Errorf("create results: %w", err)
	}
	log.Info().
		Str("template", tpl.Title).
		Int("created", len(created)).
		Int("unresolved", len(tpl.Properties)-len(staged)-present).
		Int("already_present", present).
		Int("conflicted", len(staged)-len(created)).
		Msg("results generated")
	return created, nil
}

// Stage builds the results that should be created for properties, in
// property order. existing holds property names that already have a result;
// it is not modified.
func Stage(analysisID uuid.UUID, properties []*template.Property, cohort refrange.Cohort, sex refrange.Sex, existing map[string]bool) []*Result {
	seen := make(map[string]bool, len(existing)+len(properties))
	for name := range existing {
		seen[name] = true
	}
	var staged []*Result
	for _, prop := range properties {
		if seen[prop.Name] {
			continue
		}
		if refrange.Resolve(prop.Intervals, cohort, sex) == nil {
			continue
		}
		seen[prop.Name] = true
		staged = append(staged, &Result{
			AnalysisID:   analysisID,
			PropertyName: prop.Name,
			LoincCodeID:  prop.LoincCodeID,
			Unit:         prop.Unit,
			Value:        "",
		})
	}
	return staged
}

func countExisting(properties []*template.Property, existing map[string]bool) int {
	n := 0
	for _, prop := range properties {
		if existing[prop.Name] {
			n++
		}
	}
	return n
}
