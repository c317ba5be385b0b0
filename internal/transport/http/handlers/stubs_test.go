package handlers

import (
	"context"
	"io"

	"github.com/valentina-app/backend/internal/domain/model"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	paymentsvc "github.com/valentina-app/backend/internal/services/payments"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	sponsorsvc "github.com/valentina-app/backend/internal/services/sponsors"
)

type stubMatches struct {
	visible   []model.Match
	instant   model.Match
	instErr   error
	redeemed  model.VIPCode
	redeemErr error
	pending   bool
	deleteErr error
	overview  matchessvc.Overview
	issued    matchessvc.IssuedCode
	issueErr  error
	created   model.Match
	createErr error
	pair      []string
}

func (s *stubMatches) RevealedMatchesFor(context.Context, string) ([]model.Match, error) {
	return s.visible, nil
}

func (s *stubMatches) CreateAutomaticInstantMatch(context.Context, string) (model.Match, error) {
	return s.instant, s.instErr
}

func (s *stubMatches) RedeemVIPCode(context.Context, string, string) (model.VIPCode, error) {
	return s.redeemed, s.redeemErr
}

func (s *stubMatches) HasPendingCode(context.Context, string) (bool, error) {
	return s.pending, nil
}

func (s *stubMatches) CreateManualMatch(_ context.Context, a, b string) (model.Match, error) {
	s.pair = []string{a, b}
	return s.created, s.createErr
}

func (s *stubMatches) DeleteMatch(context.Context, string) error {
	return s.deleteErr
}

func (s *stubMatches) IssueVIPCodeWithMatch(_ context.Context, assigned, target string) (matchessvc.IssuedCode, error) {
	s.pair = []string{assigned, target}
	return s.issued, s.issueErr
}

func (s *stubMatches) IssueLegacyVIPCode(context.Context, string) (model.VIPCode, error) {
	return s.issued.Code, s.issueErr
}

func (s *stubMatches) DeleteVIPCode(context.Context, string) error {
	return s.deleteErr
}

func (s *stubMatches) Overview(context.Context) (matchessvc.Overview, error) {
	return s.overview, nil
}

type stubCards struct{}

func (stubCards) Cards(_ context.Context, viewer string, matches []model.Match) ([]profilesvc.MatchCard, error) {
	out := make([]profilesvc.MatchCard, 0, len(matches))
	for _, m := range matches {
		out = append(out, profilesvc.MatchCard{
			MatchID:        m.ID,
			IsInstantMatch: m.IsInstantMatch,
			Name:           "counterpart-of-" + viewer,
			WhatsAppLink:   "https://wa.me/2348000000000",
		})
	}
	return out, nil
}

type stubProfiles struct {
	profiles  []model.Profile
	uploaded  int64
	updateErr error
}

func (s *stubProfiles) Get(_ context.Context, userID string) (model.Profile, error) {
	for _, p := range s.profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return model.Profile{}, profilesvc.ErrNotFound
}

func (s *stubProfiles) UpdateOwn(_ context.Context, userID string, _ profilesvc.ContentPatch) (model.Profile, error) {
	if s.updateErr != nil {
		return model.Profile{}, s.updateErr
	}
	return s.Get(context.Background(), userID)
}

func (s *stubProfiles) UploadPhoto(_ context.Context, _ string, _ string, body io.Reader, _ int64) (string, error) {
	n, _ := io.Copy(io.Discard, body)
	s.uploaded = n
	return "https://cdn.test/photo.jpg", nil
}

func (s *stubProfiles) PhotoURL(context.Context, model.Profile) string { return "" }

func (s *stubProfiles) List(context.Context) ([]model.Profile, error) { return s.profiles, nil }

func (s *stubProfiles) AdminUpdate(_ context.Context, userID string, _ profilesvc.AdminPatch) (model.Profile, error) {
	if s.updateErr != nil {
		return model.Profile{}, s.updateErr
	}
	return s.Get(context.Background(), userID)
}

func (s *stubProfiles) AdminDelete(context.Context, string) error { return nil }

type stubSponsors struct {
	items []model.Sponsor
}

func (s *stubSponsors) Create(_ context.Context, in sponsorsvc.CreateInput) (model.Sponsor, error) {
	sp := model.Sponsor{ID: "sp-1", Name: in.Name, Link: in.Link, LogoURL: in.LogoURL}
	s.items = append(s.items, sp)
	return sp, nil
}

func (s *stubSponsors) List(context.Context) ([]model.Sponsor, error) { return s.items, nil }

func (s *stubSponsors) UploadLogo(_ context.Context, id, _ string, _ io.Reader, _ int64) (model.Sponsor, error) {
	return model.Sponsor{ID: id}, nil
}

func (s *stubSponsors) Delete(context.Context, string) error { return sponsorsvc.ErrNotFound }

type stubPayments struct {
	res paymentsvc.VerifyResult
	err error
}

func (s *stubPayments) Verify(context.Context, string, string) (paymentsvc.VerifyResult, error) {
	return s.res, s.err
}
