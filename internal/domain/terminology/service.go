package terminology

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

// Service manages the LOINC code catalogue.
type Service struct {
	repo LoincRepository
}

// NewService creates a new terminology service.
func NewService(repo LoincRepository) *Service {
	return &Service{repo: repo}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalize(c *LoincCode) error {
	c.LoincNum = strings.ToUpper(strings.TrimSpace(c.LoincNum))
	c.ShortName = trimOptional(c.ShortName)
	c.Component = trimOptional(c.Component)
	c.Property = trimOptional(c.Property)
	c.System = trimOptional(c.System)
	c.ScaleType = trimOptional(c.ScaleType)
	return validation.Struct(c)
}

// CreateCode registers a new LOINC code. LOINC numbers are unique.
func (s *Service) CreateCode(ctx context.Context, c *LoincCode) error {
	if err := normalize(c); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) GetCode(ctx context.Context, id uuid.UUID) (*LoincCode, error) {
	return s.repo.GetByID(ctx, id)
}

// LookupCode finds a code by its LOINC number.
func (s *Service) LookupCode(ctx context.Context, num string) (*LoincCode, error) {
	num = strings.ToUpper(strings.TrimSpace(num))
	if num == "" {
		return nil, fmt.Errorf("loinc_num is required")
	}
	return s.repo.GetByNum(ctx, num)
}

func (s *Service) UpdateCode(ctx context.Context, c *LoincCode) error {
	if err := normalize(c); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

// DeleteCode removes a code. Codes still referenced by template properties
// or results are refused with ErrInUse.
func (s *Service) DeleteCode(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// SearchCodes searches LOINC codes by free text.
func (s *Service) SearchCodes(ctx context.Context, query string, limit, offset int) ([]*LoincCode, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(query), limit, offset)
}
