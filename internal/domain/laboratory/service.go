package laboratory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/blobstore"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/validation"
)

// MaxLogoSize is the largest accepted logo upload.
const MaxLogoSize = 5 * 1024 * 1024

var logoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

type Service struct {
	repo   LaboratoryRepository
	blobs  blobstore.BlobStore
	logger zerolog.Logger
}

func NewService(repo LaboratoryRepository, blobs blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger}
}

func normalize(l *Laboratory) error {
	l.Name = strings.TrimSpace(l.Name)
	l.City = strings.TrimSpace(l.City)
	l.State = strings.TrimSpace(l.State)
	l.PostalCode = strings.TrimSpace(l.PostalCode)
	l.Country = strings.TrimSpace(l.Country)
	return validation.Struct(l)
}

func (s *Service) CreateLaboratory(ctx context.Context, l *Laboratory) error {
	if err := normalize(l); err != nil {
		return err
	}
	return s.repo.Create(ctx, l)
}

func (s *Service) GetLaboratory(ctx context.Context, id uuid.UUID) (*Laboratory, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateLaboratory(ctx context.Context, l *Laboratory) error {
	if err := normalize(l); err != nil {
		return err
	}
	return s.repo.Update(ctx, l)
}

// DeleteLaboratory removes the laboratory (its patients cascade) and then
// drops its logo object.
func (s *Service) DeleteLaboratory(ctx context.Context, id uuid.UUID) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if l.LogoKey != nil {
		s.removeObject(ctx, *l.LogoKey)
	}
	return nil
}

func (s *Service) SearchLaboratories(ctx context.Context, params map[string]string, limit, offset int) ([]*Laboratory, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// UploadLogo stores an image as the laboratory logo, replacing any previous
// one. The content type is sniffed from the bytes, not trusted from the
// client.
func (s *Service) UploadLogo(ctx context.Context, id uuid.UUID, content io.Reader) (*Laboratory, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxLogoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	if len(data) > MaxLogoSize {
		return nil, ErrLogoTooLarge
	}
	mt := mimetype.Detect(data)
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !logoTypes[ct] {
		return nil, ErrUnsupportedLogo
	}

	key := logoKey(id, mt.Extension())
	if _, err := s.blobs.Put(ctx, key, ct, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("store logo: %w", err)
	}
	if err := s.repo.SetLogo(ctx, id, &key); err != nil {
		return nil, err
	}
	if l.LogoKey != nil && *l.LogoKey != key {
		s.removeObject(ctx, *l.LogoKey)
	}
	s.logger.Info().Str("laboratory_id", id.String()).Str("key", key).Int("size", len(data)).Msg("laboratory logo stored")

	l.LogoKey = &key
	return l, nil
}

// DownloadLogo opens the current logo. The caller closes the reader.
func (s *Service) DownloadLogo(ctx context.Context, id uuid.UUID) (io.ReadCloser, *blobstore.Object, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if l.LogoKey == nil {
		return nil, nil, ErrNoLogo
	}
	rc, obj, err := s.blobs.Get(ctx, *l.LogoKey)
	if errors.Is(err, blobstore.ErrObjectNotFound) {
		return nil, nil, ErrNoLogo
	}
	return rc, obj, err
}

func (s *Service) DeleteLogo(ctx context.Context, id uuid.UUID) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.LogoKey == nil {
		return ErrNoLogo
	}
	if err := s.repo.SetLogo(ctx, id, nil); err != nil {
		return err
	}
	s.removeObject(ctx, *l.LogoKey)
	return nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrObjectNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove stale logo object")
	}
}
