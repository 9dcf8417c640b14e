package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   PaymentRepository
	logger zerolog.Logger
}

func NewService(repo PaymentRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func validatePayment(p *Payment) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if p.PaidOn.IsZero() {
		return fmt.Errorf("paid_on is required")
	}
	if p.DueOn.IsZero() {
		return fmt.Errorf("due_on is required")
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !validStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	p.PaidOn = truncateDay(p.PaidOn)
	p.DueOn = truncateDay(p.DueOn)
	return nil
}

func (s *Service) CreatePayment(ctx context.Context, p *Payment) error {
	if err := validatePayment(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdatePayment(ctx context.Context, p *Payment) error {
	if err := validatePayment(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SearchPayments(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error) {
	if st, ok := params["status"]; ok && !validStatuses[Status(st)] {
		return nil, 0, fmt.Errorf("invalid status: %s", st)
	}
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Payment, int, error) {
	return s.repo.Search(ctx, map[string]string{"user": userID.String()}, limit, offset)
}

// MarkOverdue flips pending payments whose due date passed before now.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("marking overdue payments failed")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("payments marked overdue")
	}
	return n, nil
}

// RunOverdueSweep calls MarkOverdue every interval until ctx is cancelled.
func (s *Service) RunOverdueSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			_, _ = s.MarkOverdue(ctx, t)
		}
	}
}
