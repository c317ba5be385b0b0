package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type SponsorLister interface {
	List(ctx context.Context) ([]model.Sponsor, error)
}

type PublicConfig struct {
	RevealAt      time.Time
	SignupFeeKobo int64
}

type PublicHandler struct {
	cfg      PublicConfig
	sponsors SponsorLister
	now      func() time.Time
}

func NewPublicHandler(cfg PublicConfig, sponsors SponsorLister) *PublicHandler {
	return &PublicHandler{cfg: cfg, sponsors: sponsors, now: time.Now}
}

func (h *PublicHandler) Config(w http.ResponseWriter, _ *http.Request) {
	now := h.now().UTC()
	cd := rules.CountdownTo(now, h.cfg.RevealAt)

	writeOK(w, dto.PublicConfigResponse{
		RevealAt:         h.cfg.RevealAt.UTC(),
		ServerTime:       now,
		SecondsRemaining: int64(cd.Remaining / time.Second),
		Revealed:         cd.Revealed,
		Countdown: dto.CountdownResponse{
			Days:    cd.Days,
			Hours:   cd.Hours,
			Minutes: cd.Minutes,
			Seconds: cd.Seconds,
		},
		SignupFeeKobo: h.cfg.SignupFeeKobo,
	})
}

func (h *PublicHandler) Sponsors(w http.ResponseWriter, r *http.Request) {
	if h.sponsors == nil {
		writeInternal(w, "SPONSORS_SERVICE_UNAVAILABLE", "sponsors service is unavailable")
		return
	}

	items, err := h.sponsors.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.SponsorsResponse{Items: sponsorResponses(items)})
}

func sponsorResponses(items []model.Sponsor) []dto.SponsorResponse {
	out := make([]dto.SponsorResponse, 0, len(items))
	for _, s := range items {
		out = append(out, dto.SponsorResponse{
			ID:      s.ID,
			Name:    s.Name,
			Link:    s.Link,
			LogoURL: s.LogoURL,
		})
	}
	return out
}
