package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

type Service struct {
	templates  TemplateRepository
	properties PropertyRepository
	intervals  refrange.IntervalRepository
}

func NewService(templates TemplateRepository, properties PropertyRepository, intervals refrange.IntervalRepository) *Service {
	return &Service{templates: templates, properties: properties, intervals: intervals}
}

func validateTemplate(t *Template) error {
	t.Title = strings.TrimSpace(t.Title)
	if err := validation.Struct(t); err != nil {
		return err
	}
	if t.Format == "" {
		t.Format = FormatResults
	}
	if !validFormats[t.Format] {
		return fmt.Errorf("invalid format: %s", t.Format)
	}
	return nil
}

func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.templates.Update(ctx, t)
}

// DeleteTemplate removes a template with its properties and intervals. It
// fails with ErrInUse while analyses reference the template.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) SearchTemplates(ctx context.Context, params map[string]string, limit, offset int) ([]*Template, int, error) {
	return s.templates.Search(ctx, params, limit, offset)
}

// GetWithProperties loads a template, its properties and each property's
// reference intervals, all in insertion order.
func (s *Service) GetWithProperties(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	props, err := s.properties.ListByTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	ids := make([]uuid.UUID, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	byProp, err := s.intervals.ListByProperties(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	for _, p := range props {
		p.Intervals = byProp[p.ID]
	}
	t.Properties = props
	return t, nil
}

func validateProperty(p *Property) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Unit != nil {
		u := strings.TrimSpace(*p.Unit)
		if u == "" {
			p.Unit = nil
		} else {
			p.Unit = &u
		}
	}
	return validation.Struct(p)
}

func (s *Service) CreateProperty(ctx context.Context, p *Property) error {
	if p.TemplateID == uuid.Nil {
		return fmt.Errorf("template_id is required")
	}
	if err := validateProperty(p); err != nil {
		return err
	}
	return s.properties.Create(ctx, p)
}

func (s *Service) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Intervals, err = s.intervals.ListByProperty(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	return p, nil
}

func (s *Service) UpdateProperty(ctx context.Context, p *Property) error {
	if err := validateProperty(p); err != nil {
		return err
	}
	return s.properties.Update(ctx, p)
}

func (s *Service) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	return s.properties.Delete(ctx, id)
}

func (s *Service) ListProperties(ctx context.Context, templateID uuid.UUID) ([]*Property, error) {
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return nil, err
	}
	return s.properties.ListByTemplate(ctx, templateID)
}
