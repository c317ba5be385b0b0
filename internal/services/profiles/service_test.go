package profiles

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	"github.com/valentina-app/backend/internal/services/media"
)

type stubStore struct {
	profiles map[string]model.Profile
	matched  map[string]bool
}

func newStubStore(profiles ...model.Profile) *stubStore {
	s := &stubStore{profiles: map[string]model.Profile{}, matched: map[string]bool{}}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *stubStore) Create(_ context.Context, p model.Profile) (model.Profile, error) {
	for _, existing := range s.profiles {
		if existing.Email == p.Email {
			return model.Profile{}, pgrepo.ErrEmailTaken
		}
	}
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *stubStore) Get(_ context.Context, userID string) (model.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) GetMany(_ context.Context, ids []string) (map[string]model.Profile, error) {
	out := map[string]model.Profile{}
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubStore) List(context.Context) ([]model.Profile, error) {
	out := make([]model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubStore) UpdateContent(_ context.Context, userID string, patch pgrepo.ProfileContentPatch, now time.Time) (model.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrNotFound
	}
	if patch.About != nil {
		p.About = *patch.About
	}
	if patch.Interests != nil {
		p.Interests = patch.Interests
	}
	if patch.ShowProfileToMatch != nil {
		p.ShowProfileToMatch = *patch.ShowProfileToMatch
	}
	p.UpdatedAt = now
	s.profiles[userID] = p
	return p, nil
}

func (s *stubStore) AdminUpdate(_ context.Context, userID string, patch pgrepo.ProfileAdminPatch, now time.Time) (model.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrNotFound
	}
	if patch.Gender != nil && *patch.Gender != p.Gender && s.matched[userID] {
		return model.Profile{}, pgrepo.ErrGenderLocked
	}
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.PaymentStatus != nil {
		p.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	p.UpdatedAt = now
	s.profiles[userID] = p
	return p, nil
}

func (s *stubStore) SetPhotoKey(_ context.Context, userID, key string, _ time.Time) error {
	p, ok := s.profiles[userID]
	if !ok {
		return pgrepo.ErrNotFound
	}
	p.PhotoKey = key
	s.profiles[userID] = p
	return nil
}

func (s *stubStore) Delete(_ context.Context, userID string) (bool, error) {
	if _, ok := s.profiles[userID]; !ok {
		return false, nil
	}
	delete(s.profiles, userID)
	return true, nil
}

type stubImages struct {
	next    string
	deleted []string
	putErr  error
}

func (s *stubImages) Put(_ context.Context, in media.Upload) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	return in.Namespace + "/" + in.OwnerID + "/" + s.next, nil
}

func (s *stubImages) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.local/" + key, nil
}

func (s *stubImages) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, &stubImages{}, nil)

	p, err := svc.Register(context.Background(), RegisterInput{
		Name:     " Ada ",
		Email:    "Ada@Example.com ",
		Password: "valentine-2027",
		Gender:   "Female",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Email != "ada@example.com" || p.Name != "Ada" || p.Gender != enums.GenderFemale {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.PaymentStatus {
		t.Fatalf("new profiles must start unpaid")
	}
	if p.PasswordHash == "" || p.PasswordHash == "valentine-2027" {
		t.Fatalf("password was not hashed")
	}

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "ada@example.com", Password: "valentine-2027", Gender: "male"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc := NewService(newStubStore(), nil, nil)

	cases := []RegisterInput{
		{Name: "", Email: "a@b.co", Password: "valentine-2027", Gender: "male"},
		{Name: "A", Email: "not-an-email", Password: "valentine-2027", Gender: "male"},
		{Name: "A", Email: "a@b.co", Password: "short", Gender: "male"},
		{Name: "A", Email: "a@b.co", Password: "valentine-2027", Gender: "other"},
	}
	for i, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestUpdateOwnDeduplicatesInterests(t *testing.T) {
	store := newStubStore(model.Profile{UserID: "u1", Gender: enums.GenderMale})
	svc := NewService(store, nil, nil)

	about := "  likes long walks  "
	p, err := svc.UpdateOwn(context.Background(), "u1", ContentPatch{
		About:     &about,
		Interests: []string{"Music", "music", " ", "Travel"},
	})
	if err != nil {
		t.Fatalf("update own: %v", err)
	}
	if p.About != "likes long walks" {
		t.Fatalf("unexpected about: %q", p.About)
	}
	if strings.Join(p.Interests, ",") != "Music,Travel" {
		t.Fatalf("unexpected interests: %v", p.Interests)
	}

	long := strings.Repeat("x", maxAboutLen+1)
	if _, err := svc.UpdateOwn(context.Background(), "u1", ContentPatch{About: &long}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for long about, got %v", err)
	}
}

func TestUploadPhotoReplacesPreviousObject(t *testing.T) {
	store := newStubStore(model.Profile{UserID: "u1", PhotoKey: "profiles/u1/old.jpg"})
	images := &stubImages{next: "new.jpg"}
	svc := NewService(store, images, nil)

	url, err := svc.UploadPhoto(context.Background(), "u1", "image/jpeg", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("upload photo: %v", err)
	}
	if url != "https://cdn.local/profiles/u1/new.jpg" {
		t.Fatalf("unexpected url: %s", url)
	}
	if store.profiles["u1"].PhotoKey != "profiles/u1/new.jpg" {
		t.Fatalf("photo key not stored: %s", store.profiles["u1"].PhotoKey)
	}
	if len(images.deleted) != 1 || images.deleted[0] != "profiles/u1/old.jpg" {
		t.Fatalf("expected previous photo removed, got %v", images.deleted)
	}

	images.putErr = media.ErrTooLarge
	if _, err := svc.UploadPhoto(context.Background(), "u1", "image/jpeg", strings.NewReader("x"), 1); !errors.Is(err, media.ErrTooLarge) {
		t.Fatalf("expected media error to pass through, got %v", err)
	}
}

func TestAdminUpdateRejectsGenderChangeWhileMatched(t *testing.T) {
	store := newStubStore(model.Profile{UserID: "u1", Gender: enums.GenderMale, Email: "u1@example.com"})
	store.matched["u1"] = true
	svc := NewService(store, nil, nil)

	female := "female"
	if _, err := svc.AdminUpdate(context.Background(), "u1", AdminPatch{Gender: &female}); !errors.Is(err, ErrGenderLocked) {
		t.Fatalf("expected ErrGenderLocked, got %v", err)
	}

	paid := true
	p, err := svc.AdminUpdate(context.Background(), "u1", AdminPatch{PaymentStatus: &paid})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if !p.PaymentStatus {
		t.Fatalf("expected payment status set")
	}

	bad := "nope"
	if _, err := svc.AdminUpdate(context.Background(), "u1", AdminPatch{Email: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAdminDeleteRemovesPhoto(t *testing.T) {
	store := newStubStore(model.Profile{UserID: "u1", PhotoKey: "profiles/u1/a.jpg"})
	images := &stubImages{}
	svc := NewService(store, images, nil)

	if err := svc.AdminDelete(context.Background(), "u1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(images.deleted) != 1 {
		t.Fatalf("expected photo removed, got %v", images.deleted)
	}
	if err := svc.AdminDelete(context.Background(), "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCardsRespectsShowProfileToMatch(t *testing.T) {
	store := newStubStore(
		model.Profile{UserID: "u1", Name: "Tunde", Gender: enums.GenderMale},
		model.Profile{UserID: "u2", Name: "Ada", Gender: enums.GenderFemale, About: "hi", WhatsAppPhone: "+234 801 234 5678", ShowProfileToMatch: false, PhotoKey: "profiles/u2/p.jpg"},
	)
	svc := NewService(store, &stubImages{}, nil)

	cards, err := svc.Cards(context.Background(), "u1", []model.Match{{ID: "m1", MaleUserID: "u1", FemaleUserID: "u2"}})
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards))
	}
	card := cards[0]
	if card.Name != "Ada" || card.About != "" {
		t.Fatalf("hidden profile leaked details: %+v", card)
	}
	if card.WhatsAppLink != "https://wa.me/2348012345678" {
		t.Fatalf("unexpected whatsapp link: %s", card.WhatsAppLink)
	}
	if card.PhotoURL != "https://cdn.local/profiles/u2/p.jpg" {
		t.Fatalf("unexpected photo url: %s", card.PhotoURL)
	}
}
