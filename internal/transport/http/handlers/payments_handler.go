package handlers

import (
	"context"
	"net/http"

	authsvc "github.com/valentina-app/backend/internal/services/auth"
	paymentsvc "github.com/valentina-app/backend/internal/services/payments"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

type PaymentVerifier interface {
	Verify(ctx context.Context, userID, reference string) (paymentsvc.VerifyResult, error)
}

type PaymentsHandler struct {
	payments PaymentVerifier
}

func NewPaymentsHandler(payments PaymentVerifier) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

func (h *PaymentsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.payments.Verify(r.Context(), identity.UserID, req.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.VerifyPaymentResponse{OK: true, Reference: res.Reference, AlreadyPaid: res.AlreadyPaid})
}
