package refrange

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

type Service struct {
	repo IntervalRepository
}

func NewService(repo IntervalRepository) *Service {
	return &Service{repo: repo}
}

func validateInterval(iv *Interval) error {
	if err := validation.Struct(iv); err != nil {
		return err
	}
	if iv.Sex == "" {
		iv.Sex = SexBoth
	}
	if !iv.AgeCohort.Valid() {
		return fmt.Errorf("invalid age_cohort: %s", iv.AgeCohort)
	}
	if !iv.Sex.ValidForInterval() {
		return fmt.Errorf("invalid sex: %s", iv.Sex)
	}
	if iv.Min > iv.Max {
		return fmt.Errorf("min_value %g is greater than max_value %g", iv.Min, iv.Max)
	}
	return nil
}

func (s *Service) CreateInterval(ctx context.Context, iv *Interval) error {
	if iv.PropertyID == uuid.Nil {
		return fmt.Errorf("property_id is required")
	}
	if err := validateInterval(iv); err != nil {
		return err
	}
	return s.repo.Create(ctx, iv)
}

func (s *Service) GetInterval(ctx context.Context, id uuid.UUID) (*Interval, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateInterval(ctx context.Context, iv *Interval) error {
	if err := validateInterval(iv); err != nil {
		return err
	}
	return s.repo.Update(ctx, iv)
}

func (s *Service) DeleteInterval(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListIntervals(ctx context.Context, propertyID uuid.UUID) ([]*Interval, error) {
	return s.repo.ListByProperty(ctx, propertyID)
}

// IntervalsFor loads the intervals of several properties at once.
func (s *Service) IntervalsFor(ctx context.Context, propertyIDs []uuid.UUID) (map[uuid.UUID][]*Interval, error) {
	return s.repo.ListByProperties(ctx, propertyIDs)
}

// ResolveFor returns the interval a patient of the given age and sex would
// get for the property, or nil.
func (s *Service) ResolveFor(ctx context.Context, propertyID uuid.UUID, age int, sex Sex) (*Interval, error) {
	if age < 0 {
		return nil, fmt.Errorf("age must be non-negative")
	}
	if !sex.ValidForPatient() {
		return nil, fmt.Errorf("invalid sex: %s", sex)
	}
	intervals, err := s.repo.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return ResolveForAge(intervals, age, sex), nil
}
