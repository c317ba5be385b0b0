package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
	authsvc "github.com/valentina-app/backend/internal/services/auth"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type UserAuthService interface {
	Login(ctx context.Context, email, password string) (authsvc.AuthResult, error)
	IssueForUser(ctx context.Context, userID string) (authsvc.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (authsvc.AuthResult, error)
	Logout(ctx context.Context, sid string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type Registrar interface {
	Register(ctx context.Context, in profilesvc.RegisterInput) (model.Profile, error)
}

type AuthHandler struct {
	auth      UserAuthService
	registrar Registrar
}

func NewAuthHandler(auth UserAuthService, registrar Registrar) *AuthHandler {
	return &AuthHandler{auth: auth, registrar: registrar}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || h.registrar == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	profile, err := h.registrar.Register(r.Context(), profilesvc.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Gender:        req.Gender,
		WhatsAppPhone: req.WhatsAppPhone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.auth.IssueForUser(r.Context(), profile.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTokens(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTokens(w, http.StatusOK, res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTokens(w, http.StatusOK, res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	if err := h.auth.Logout(r.Context(), identity.SID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

// PasswordReset always answers 200 so the endpoint does not reveal which
// emails are registered.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.PasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.PasswordResetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func writeTokens(w http.ResponseWriter, status int, res authsvc.AuthResult) {
	writeJSON(w, status, dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: maxInt64(0, int64(time.Until(res.AccessExpires).Seconds())),
		UserID:       res.UserID,
	})
}
