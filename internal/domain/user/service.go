package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

// MinPasswordLength is the shortest password accepted.
const MinPasswordLength = 8

type Service struct {
	repo   UserRepository
	tokens auth.JWTConfig
	logger zerolog.Logger
	cost   int
	now    func() time.Time
}

func NewService(repo UserRepository, tokens auth.JWTConfig, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalize(u *User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Phone = strings.TrimSpace(u.Phone)
	if u.Role == "" {
		u.Role = RoleOperator
	}
	if err := validation.Struct(u); err != nil {
		return err
	}
	if !validRoles[u.Role] {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateUser validates the profile, hashes the password and stores both.
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if err := normalize(u); err != nil {
		return err
	}
	h, err := s.hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = h
	return s.repo.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if err := normalize(u); err != nil {
		return err
	}
	return s.repo.Update(ctx, u)
}

func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	h, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, h)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SearchUsers(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// Authenticate checks the credentials and issues a signed token carrying the
// user's role and laboratories. Unknown emails and wrong passwords are
// reported identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*LoginResponse, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("user_id", u.ID.String()).Msg("login rejected: bad password")
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}

	token, exp, err := s.tokens.IssueToken(u.ID.String(), []string{u.Role}, u.laboratoryStrings(), s.now())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &LoginResponse{Token: token, ExpiresAt: exp, User: u}, nil
}
