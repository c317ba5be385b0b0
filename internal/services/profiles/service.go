package profiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	"github.com/valentina-app/backend/internal/pkg/password"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	"github.com/valentina-app/backend/internal/services/media"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("profile not found")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrGenderLocked = errors.New("gender cannot change while the user is matched")
)

const (
	maxNameLen     = 80
	maxAboutLen    = 1000
	maxWishlistLen = 1000
	maxInterests   = 12
)

type ProfileStore interface {
	Create(ctx context.Context, p model.Profile) (model.Profile, error)
	Get(ctx context.Context, userID string) (model.Profile, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	UpdateContent(ctx context.Context, userID string, patch pgrepo.ProfileContentPatch, now time.Time) (model.Profile, error)
	AdminUpdate(ctx context.Context, userID string, patch pgrepo.ProfileAdminPatch, now time.Time) (model.Profile, error)
	SetPhotoKey(ctx context.Context, userID, key string, now time.Time) error
	Delete(ctx context.Context, userID string) (bool, error)
}

type ImageStore interface {
	Put(ctx context.Context, in media.Upload) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store  ProfileStore
	images ImageStore
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store ProfileStore, images ImageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		images: images,
		logger: logger,
		now:    time.Now,
	}
}

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Gender        string
	WhatsAppPhone string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (model.Profile, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	gender, ok := enums.ParseGender(in.Gender)
	if name == "" || len(name) > maxNameLen || !ok || !validEmail(email) {
		return model.Profile{}, ErrValidation
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return model.Profile{}, ErrValidation
		}
		return model.Profile{}, err
	}

	now := s.now().UTC()
	created, err := s.store.Create(ctx, model.Profile{
		UserID:             uuid.NewString(),
		Name:               name,
		Email:              email,
		PasswordHash:       hash,
		Gender:             gender,
		WhatsAppPhone:      strings.TrimSpace(in.WhatsAppPhone),
		Interests:          []string{},
		ShowProfileToMatch: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return model.Profile{}, mapStoreErr(err)
	}

	s.logger.Info("profile registered", zap.String("user_id", created.UserID), zap.String("gender", string(created.Gender)))
	return created, nil
}

func (s *Service) Get(ctx context.Context, userID string) (model.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return model.Profile{}, mapStoreErr(err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]model.Profile, error) {
	return s.store.List(ctx)
}

type ContentPatch struct {
	WhatsAppPhone      *string
	About              *string
	Interests          []string
	Wishlist           *string
	RelationshipStatus *string
	ShowProfileToMatch *bool
}

// UpdateOwn applies a user's edits to their own profile. Gender and payment
// state are not reachable from here.
func (s *Service) UpdateOwn(ctx context.Context, userID string, patch ContentPatch) (model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Profile{}, ErrValidation
	}
	if patch.About != nil && len(*patch.About) > maxAboutLen {
		return model.Profile{}, ErrValidation
	}
	if patch.Wishlist != nil && len(*patch.Wishlist) > maxWishlistLen {
		return model.Profile{}, ErrValidation
	}

	var interests []string
	if patch.Interests != nil {
		interests = normalizeInterests(patch.Interests)
		if len(interests) > maxInterests {
			return model.Profile{}, ErrValidation
		}
	}

	updated, err := s.store.UpdateContent(ctx, userID, pgrepo.ProfileContentPatch{
		WhatsAppPhone:      trimmed(patch.WhatsAppPhone),
		About:              trimmed(patch.About),
		Interests:          interests,
		Wishlist:           trimmed(patch.Wishlist),
		RelationshipStatus: trimmed(patch.RelationshipStatus),
		ShowProfileToMatch: patch.ShowProfileToMatch,
	}, s.now().UTC())
	if err != nil {
		return model.Profile{}, mapStoreErr(err)
	}
	return updated, nil
}

// UploadPhoto replaces the user's profile photo and returns a signed URL
// for the new one.
func (s *Service) UploadPhoto(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("image store is not configured")
	}

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", mapStoreErr(err)
	}

	key, err := s.images.Put(ctx, media.Upload{
		Namespace:   "profiles",
		OwnerID:     userID,
		ContentType: contentType,
		Body:        body,
		Size:        size,
	})
	if err != nil {
		return "", err
	}

	if err := s.store.SetPhotoKey(ctx, userID, key, s.now().UTC()); err != nil {
		_ = s.images.Delete(ctx, key)
		return "", mapStoreErr(err)
	}
	if current.PhotoKey != "" && current.PhotoKey != key {
		if err := s.images.Delete(ctx, current.PhotoKey); err != nil {
			s.logger.Warn("delete previous profile photo failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return s.images.URL(ctx, key)
}

func (s *Service) PhotoURL(ctx context.Context, p model.Profile) string {
	if s.images == nil || p.PhotoKey == "" {
		return ""
	}
	url, err := s.images.URL(ctx, p.PhotoKey)
	if err != nil {
		s.logger.Warn("presign profile photo failed", zap.String("user_id", p.UserID), zap.Error(err))
		return ""
	}
	return url
}

type AdminPatch struct {
	Name          *string
	Email         *string
	WhatsAppPhone *string
	Gender        *string
	PaymentStatus *bool
}

func (s *Service) AdminUpdate(ctx context.Context, userID string, patch AdminPatch) (model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Profile{}, ErrValidation
	}

	repoPatch := pgrepo.ProfileAdminPatch{
		WhatsAppPhone: trimmed(patch.WhatsAppPhone),
		PaymentStatus: patch.PaymentStatus,
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || len(name) > maxNameLen {
			return model.Profile{}, ErrValidation
		}
		repoPatch.Name = &name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !validEmail(email) {
			return model.Profile{}, ErrValidation
		}
		repoPatch.Email = &email
	}
	if patch.Gender != nil {
		g, ok := enums.ParseGender(*patch.Gender)
		if !ok {
			return model.Profile{}, ErrValidation
		}
		repoPatch.Gender = &g
	}

	updated, err := s.store.AdminUpdate(ctx, userID, repoPatch, s.now().UTC())
	if err != nil {
		return model.Profile{}, mapStoreErr(err)
	}

	s.logger.Info("profile updated by operator", zap.String("user_id", userID))
	return updated, nil
}

// AdminDelete removes the profile. Matches and codes go with it.
func (s *Service) AdminDelete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidation
	}

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return mapStoreErr(err)
	}
	deleted, err := s.store.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	if current.PhotoKey != "" && s.images != nil {
		if err := s.images.Delete(ctx, current.PhotoKey); err != nil {
			s.logger.Warn("delete profile photo failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.logger.Info("profile deleted by operator", zap.String("user_id", userID))
	return nil
}

// MatchCard is what a user sees about their counterpart once a match is
// visible to them.
type MatchCard struct {
	MatchID            string
	IsInstantMatch     bool
	MatchedAt          time.Time
	Name               string
	PhotoURL           string
	About              string
	Interests          []string
	Wishlist           string
	RelationshipStatus string
	WhatsAppLink       string
}

// Cards builds counterpart cards for matches already filtered for viewer.
// Profile details are included only when the counterpart allows it; the
// WhatsApp link is always present.
func (s *Service) Cards(ctx context.Context, viewer string, matches []model.Match) ([]MatchCard, error) {
	if len(matches) == 0 {
		return []MatchCard{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if other := m.Counterpart(viewer); other != "" {
			ids = append(ids, other)
		}
	}
	profiles, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counterparts: %w", err)
	}

	cards := make([]MatchCard, 0, len(matches))
	for _, m := range matches {
		other, ok := profiles[m.Counterpart(viewer)]
		if !ok {
			continue
		}
		card := MatchCard{
			MatchID:        m.ID,
			IsInstantMatch: m.IsInstantMatch,
			MatchedAt:      m.MatchedAt,
			Name:           other.Name,
			PhotoURL:       s.PhotoURL(ctx, other),
			WhatsAppLink:   rules.WhatsAppLink(other.WhatsAppPhone),
		}
		if other.ShowProfileToMatch {
			card.About = other.About
			card.Interests = other.Interests
			card.Wishlist = other.Wishlist
			card.RelationshipStatus = other.RelationshipStatus
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func normalizeInterests(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, pgrepo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, pgrepo.ErrEmailTaken):
		return ErrEmailTaken
	case errors.Is(err, pgrepo.ErrGenderLocked):
		return ErrGenderLocked
	default:
		return err
	}
}
