package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	authsvc "github.com/valentina-app/backend/internal/services/auth"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type UserMatchService interface {
	RevealedMatchesFor(ctx context.Context, userID string) ([]model.Match, error)
	CreateAutomaticInstantMatch(ctx context.Context, userID string) (model.Match, error)
	RedeemVIPCode(ctx context.Context, userID, rawCode string) (model.VIPCode, error)
	HasPendingCode(ctx context.Context, userID string) (bool, error)
}

type CardBuilder interface {
	Cards(ctx context.Context, viewer string, matches []model.Match) ([]profilesvc.MatchCard, error)
}

type MatchesHandler struct {
	matches  UserMatchService
	cards    CardBuilder
	revealAt time.Time
	now      func() time.Time
}

func NewMatchesHandler(matches UserMatchService, cards CardBuilder, revealAt time.Time) *MatchesHandler {
	return &MatchesHandler{matches: matches, cards: cards, revealAt: revealAt, now: time.Now}
}

// List returns counterpart cards for every match the user may see now.
// Before the reveal time only unlocked instant matches appear.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil || h.cards == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	visible, err := h.matches.RevealedMatchesFor(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cards, err := h.cards.Cards(r.Context(), identity.UserID, visible)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]dto.MatchCardResponse, 0, len(cards))
	for _, c := range cards {
		items = append(items, dto.MatchCardResponse{
			MatchID:            c.MatchID,
			IsInstantMatch:     c.IsInstantMatch,
			MatchedAt:          c.MatchedAt,
			Name:               c.Name,
			PhotoURL:           c.PhotoURL,
			About:              c.About,
			Interests:          c.Interests,
			Wishlist:           c.Wishlist,
			RelationshipStatus: c.RelationshipStatus,
			WhatsAppLink:       c.WhatsAppLink,
		})
	}

	cd := rules.CountdownTo(h.now(), h.revealAt)
	writeOK(w, dto.MatchesResponse{
		Items:            items,
		Revealed:         cd.Revealed,
		RevealAt:         h.revealAt.UTC(),
		SecondsRemaining: int64(cd.Remaining / time.Second),
	})
}

func (h *MatchesHandler) Instant(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	m, err := h.matches.CreateAutomaticInstantMatch(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, matchessvc.ErrNoAvailableCandidate) {
			writeOK(w, dto.InstantMatchResponse{
				Matched: false,
				Message: "No match is available right now. Check back later.",
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeOK(w, dto.InstantMatchResponse{
		Matched: true,
		MatchID: m.ID,
		Message: "You have a match. Redeem your VIP code to reveal it.",
	})
}

func (h *MatchesHandler) RedeemVIP(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.RedeemVIPCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	code, err := h.matches.RedeemVIPCode(r.Context(), identity.UserID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := dto.RedeemVIPCodeResponse{OK: true}
	if code.MatchID != nil {
		res.MatchID = *code.MatchID
	}
	writeOK(w, res)
}

func (h *MatchesHandler) VIPStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.matches == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	pending, err := h.matches.HasPendingCode(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.VIPStatusResponse{HasPendingCode: pending})
}
