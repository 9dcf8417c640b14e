package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

type Service struct {
	repo PatientRepository
}

func NewService(repo PatientRepository) *Service {
	return &Service{repo: repo}
}

func validatePatient(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Email != nil && strings.TrimSpace(*p.Email) == "" {
		p.Email = nil
	}
	if err := validation.Struct(p); err != nil {
		return err
	}
	if p.LaboratoryID == uuid.Nil {
		return fmt.Errorf("laboratory_id is required")
	}
	if !p.Sex.ValidForPatient() {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdatePatient refuses to change age or sex once analyses reference the
// patient, so the cohort behind existing results stays stable.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	cur, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if cur.Age != p.Age || cur.Sex != p.Sex {
		locked, err := s.repo.HasAnalyses(ctx, p.ID)
		if err != nil {
			return err
		}
		if locked {
			return ErrDemographicsLocked
		}
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
