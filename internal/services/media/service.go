package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrTooLarge        = errors.New("image is too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

const (
	defaultPresignTTL = 15 * time.Minute
	defaultMaxBytes   = 600 * 1024
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	MaxBytes   int64
	PresignTTL time.Duration
}

// Service stores profile photos and sponsor logos in object storage and
// hands out short-lived read URLs for them.
type Service struct {
	storage ObjectStorage
	cfg     Config
	now     func() time.Time
}

type Upload struct {
	Namespace   string
	OwnerID     string
	ContentType string
	Body        io.Reader
	Size        int64
}

func NewService(storage ObjectStorage, cfg Config) *Service {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	return &Service{
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// Put validates and stores an image under <namespace>/<owner>/<unix>.<ext>
// and returns the object key.
func (s *Service) Put(ctx context.Context, in Upload) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if strings.TrimSpace(in.Namespace) == "" || strings.TrimSpace(in.OwnerID) == "" || in.Body == nil || in.Size <= 0 {
		return "", ErrValidation
	}
	if in.Size > s.cfg.MaxBytes {
		return "", ErrTooLarge
	}

	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%d.%s", in.Namespace, in.OwnerID, s.now().UTC().Unix(), ext)
	// cap the read so a lying Content-Length cannot push more than the limit
	body := io.LimitReader(in.Body, s.cfg.MaxBytes)
	if err := s.storage.Put(ctx, key, body, in.Size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) URL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil
	}
	if s.storage == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	return s.storage.PresignGet(ctx, key, s.cfg.PresignTTL)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if s.storage == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return s.storage.Delete(ctx, key)
}
