package handlers

import (
	"context"
	"net/http"

	"github.com/valentina-app/backend/internal/domain/model"
	operatorsvc "github.com/valentina-app/backend/internal/services/operators"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type OperatorAuthService interface {
	Login(ctx context.Context, in operatorsvc.LoginInput) (operatorsvc.LoginResult, error)
	Logout(ctx context.Context, sid string) error
	Me(ctx context.Context, p operatorsvc.Principal) (model.Operator, error)
}

type AdminAuthHandler struct {
	operators OperatorAuthService
}

func NewAdminAuthHandler(operators OperatorAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{operators: operators}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.operators == nil {
		writeInternal(w, "OPERATOR_SERVICE_UNAVAILABLE", "operator service is unavailable")
		return
	}

	var req dto.OperatorLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.operators.Login(r.Context(), operatorsvc.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeOK(w, dto.OperatorLoginResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
		Operator:    operatorResponse(res.Operator),
	})
}

func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := operatorsvc.PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "operator authentication required")
		return
	}
	if h.operators == nil {
		writeInternal(w, "OPERATOR_SERVICE_UNAVAILABLE", "operator service is unavailable")
		return
	}

	if err := h.operators.Logout(r.Context(), p.SID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := operatorsvc.PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "operator authentication required")
		return
	}
	if h.operators == nil {
		writeInternal(w, "OPERATOR_SERVICE_UNAVAILABLE", "operator service is unavailable")
		return
	}

	op, err := h.operators.Me(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, operatorResponse(op))
}

func operatorResponse(op model.Operator) dto.OperatorResponse {
	return dto.OperatorResponse{
		ID:          op.ID,
		Username:    op.Username,
		Role:        string(op.Role),
		LastLoginAt: op.LastLoginAt,
	}
}
