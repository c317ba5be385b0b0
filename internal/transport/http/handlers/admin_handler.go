package handlers

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	operatorsvc "github.com/valentina-app/backend/internal/services/operators"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	sponsorsvc "github.com/valentina-app/backend/internal/services/sponsors"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type AdminMatchService interface {
	CreateManualMatch(ctx context.Context, userA, userB string) (model.Match, error)
	DeleteMatch(ctx context.Context, matchID string) error
	IssueVIPCodeWithMatch(ctx context.Context, assignedUser, matchTarget string) (matchessvc.IssuedCode, error)
	IssueLegacyVIPCode(ctx context.Context, assignedUser string) (model.VIPCode, error)
	DeleteVIPCode(ctx context.Context, codeID string) error
	Overview(ctx context.Context) (matchessvc.Overview, error)
}

type AdminProfileService interface {
	List(ctx context.Context) ([]model.Profile, error)
	PhotoURL(ctx context.Context, p model.Profile) string
	AdminUpdate(ctx context.Context, userID string, patch profilesvc.AdminPatch) (model.Profile, error)
	AdminDelete(ctx context.Context, userID string) error
}

type AdminSponsorService interface {
	Create(ctx context.Context, in sponsorsvc.CreateInput) (model.Sponsor, error)
	List(ctx context.Context) ([]model.Sponsor, error)
	UploadLogo(ctx context.Context, id, contentType string, body io.Reader, size int64) (model.Sponsor, error)
	Delete(ctx context.Context, id string) error
}

type AdminHandler struct {
	matches      AdminMatchService
	profiles     AdminProfileService
	sponsors     AdminSponsorService
	maxLogoBytes int64
	logger       *zap.Logger
}

func NewAdminHandler(matches AdminMatchService, profiles AdminProfileService, sponsors AdminSponsorService, maxLogoBytes int64, logger *zap.Logger) *AdminHandler {
	if maxLogoBytes <= 0 {
		maxLogoBytes = 600 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		matches:      matches,
		profiles:     profiles,
		sponsors:     sponsors,
		maxLogoBytes: maxLogoBytes,
		logger:       logger,
	}
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := h.profiles.List(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	ledger, err := h.matches.Overview(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sponsors, err := h.sponsors.List(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]dto.AdminProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, adminProfileResponse(p, h.profiles.PhotoURL(ctx, p)))
	}

	res := dto.OverviewResponse{
		Profiles: items,
		Matches:  ledger.Matches,
		VIPCodes: ledger.VIPCodes,
		Sponsors: sponsorResponses(sponsors),
	}
	if res.Matches == nil {
		res.Matches = []model.Match{}
	}
	if res.VIPCodes == nil {
		res.VIPCodes = []model.VIPCode{}
	}
	writeOK(w, res)
}

func (h *AdminHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	m, err := h.matches.CreateManualMatch(r.Context(), req.UserA, req.UserB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "match.create", zap.String("match_id", m.ID))
	writeJSON(w, http.StatusCreated, m)
}

func (h *AdminHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.matches.DeleteMatch(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "match.delete", zap.String("match_id", id))
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AdminHandler) IssueVIPCode(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueVIPCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	issued, err := h.matches.IssueVIPCodeWithMatch(r.Context(), req.AssignedUserID, req.MatchTargetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "vip_code.issue",
		zap.String("code_id", issued.Code.ID),
		zap.String("match_id", issued.Match.ID),
	)
	m := issued.Match
	writeJSON(w, http.StatusCreated, dto.IssuedVIPCodeResponse{Code: issued.Code, Match: &m})
}

func (h *AdminHandler) IssueLegacyVIPCode(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueLegacyVIPCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	code, err := h.matches.IssueLegacyVIPCode(r.Context(), req.AssignedUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "vip_code.issue_legacy", zap.String("code_id", code.ID))
	writeJSON(w, http.StatusCreated, dto.IssuedVIPCodeResponse{Code: code})
}

func (h *AdminHandler) DeleteVIPCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.matches.DeleteVIPCode(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "vip_code.delete", zap.String("code_id", id))
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	p, err := h.profiles.AdminUpdate(r.Context(), id, profilesvc.AdminPatch{
		Name:          req.Name,
		Email:         req.Email,
		WhatsAppPhone: req.WhatsAppPhone,
		Gender:        req.Gender,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "user.update", zap.String("user_id", id))
	writeOK(w, adminProfileResponse(p, h.profiles.PhotoURL(r.Context(), p)))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.profiles.AdminDelete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "user.delete", zap.String("user_id", id))
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AdminHandler) CreateSponsor(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSponsorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	s, err := h.sponsors.Create(r.Context(), sponsorsvc.CreateInput{
		Name:    req.Name,
		Link:    req.Link,
		LogoURL: req.LogoURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "sponsor.create", zap.String("sponsor_id", s.ID))
	writeJSON(w, http.StatusCreated, sponsorResponses([]model.Sponsor{s})[0])
}

func (h *AdminHandler) UploadSponsorLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, contentType, size, ok := readUpload(w, r, h.maxLogoBytes)
	if !ok {
		return
	}
	defer file.Close()

	s, err := h.sponsors.UploadLogo(r.Context(), id, contentType, file, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "sponsor.logo", zap.String("sponsor_id", id))
	writeOK(w, sponsorResponses([]model.Sponsor{s})[0])
}

func (h *AdminHandler) DeleteSponsor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.sponsors.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.audit(r, "sponsor.delete", zap.String("sponsor_id", id))
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AdminHandler) audit(r *http.Request, action string, fields ...zap.Field) {
	p, _ := operatorsvc.PrincipalFromContext(r.Context())
	fields = append(fields,
		zap.String("action", action),
		zap.String("operator_id", p.OperatorID),
		zap.String("operator", p.Username),
	)
	h.logger.Info("operator action", fields...)
}

func adminProfileResponse(p model.Profile, photoURL string) dto.AdminProfileResponse {
	return dto.AdminProfileResponse{
		UserID:        p.UserID,
		Name:          p.Name,
		Email:         p.Email,
		Gender:        string(p.Gender),
		WhatsAppPhone: p.WhatsAppPhone,
		PaymentStatus: p.PaymentStatus,
		PhotoURL:      photoURL,
		CreatedAt:     p.CreatedAt,
	}
}
