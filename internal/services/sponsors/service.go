package sponsors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	"github.com/valentina-app/backend/internal/services/media"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("sponsor not found")
)

type Store interface {
	Create(ctx context.Context, s model.Sponsor) (model.Sponsor, error)
	List(ctx context.Context) ([]model.Sponsor, error)
	SetLogo(ctx context.Context, id, key, url string) (model.Sponsor, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type ImageStore interface {
	Put(ctx context.Context, in media.Upload) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store  Store
	images ImageStore
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, images ImageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, images: images, logger: logger, now: time.Now}
}

type CreateInput struct {
	Name    string
	Link    string
	LogoURL string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (model.Sponsor, error) {
	name := strings.TrimSpace(in.Name)
	link := strings.TrimSpace(in.Link)
	logo := strings.TrimSpace(in.LogoURL)
	if name == "" || !validURL(link, true) || !validURL(logo, false) {
		return model.Sponsor{}, ErrValidation
	}

	created, err := s.store.Create(ctx, model.Sponsor{
		ID:        uuid.NewString(),
		Name:      name,
		Link:      link,
		LogoURL:   logo,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return model.Sponsor{}, fmt.Errorf("create sponsor: %w", err)
	}
	s.logger.Info("sponsor created", zap.String("sponsor_id", created.ID))
	return created, nil
}

// List returns sponsors with uploaded logos resolved to signed URLs.
func (s *Service) List(ctx context.Context) ([]model.Sponsor, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}
	for i := range items {
		if items[i].LogoKey == "" || s.images == nil {
			continue
		}
		signed, err := s.images.URL(ctx, items[i].LogoKey)
		if err != nil {
			s.logger.Warn("presign sponsor logo failed", zap.String("sponsor_id", items[i].ID), zap.Error(err))
			continue
		}
		items[i].LogoURL = signed
	}
	return items, nil
}

func (s *Service) UploadLogo(ctx context.Context, id, contentType string, body io.Reader, size int64) (model.Sponsor, error) {
	if strings.TrimSpace(id) == "" {
		return model.Sponsor{}, ErrValidation
	}
	if s.images == nil {
		return model.Sponsor{}, fmt.Errorf("image store is not configured")
	}

	key, err := s.images.Put(ctx, media.Upload{
		Namespace:   "sponsors",
		OwnerID:     id,
		ContentType: contentType,
		Body:        body,
		Size:        size,
	})
	if err != nil {
		return model.Sponsor{}, err
	}

	updated, err := s.store.SetLogo(ctx, id, key, "")
	if err != nil {
		_ = s.images.Delete(ctx, key)
		if errors.Is(err, pgrepo.ErrNotFound) {
			return model.Sponsor{}, ErrNotFound
		}
		return model.Sponsor{}, fmt.Errorf("set sponsor logo: %w", err)
	}

	if signed, err := s.images.URL(ctx, key); err == nil {
		updated.LogoURL = signed
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrValidation
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete sponsor: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("sponsor deleted", zap.String("sponsor_id", id))
	return nil
}

func validURL(raw string, required bool) bool {
	if raw == "" {
		return !required
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
