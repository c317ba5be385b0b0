package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/valentina-app/backend/internal/services/auth"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	mediasvc "github.com/valentina-app/backend/internal/services/media"
	operatorsvc "github.com/valentina-app/backend/internal/services/operators"
	paymentsvc "github.com/valentina-app/backend/internal/services/payments"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	sponsorsvc "github.com/valentina-app/backend/internal/services/sponsors"
	httperrors "github.com/valentina-app/backend/internal/transport/http/errors"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters where one error wraps another.
var errorMappings = []errorMapping{
	{matchessvc.ErrSelfMatch, http.StatusBadRequest, "SELF_MATCH"},
	{matchessvc.ErrSameGender, http.StatusBadRequest, "SAME_GENDER"},
	{matchessvc.ErrDuplicateMatch, http.StatusConflict, "DUPLICATE_MATCH"},
	{matchessvc.ErrAlreadyMatched, http.StatusConflict, "ALREADY_MATCHED"},
	{matchessvc.ErrAlreadyHasCode, http.StatusConflict, "ALREADY_HAS_CODE"},
	{matchessvc.ErrInvalidCode, http.StatusBadRequest, "INVALID_CODE"},
	{matchessvc.ErrCodeAlreadyUsed, http.StatusConflict, "CODE_ALREADY_USED"},
	{matchessvc.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{matchessvc.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	{profilesvc.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{profilesvc.ErrGenderLocked, http.StatusConflict, "GENDER_LOCKED"},
	{profilesvc.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{profilesvc.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	{mediasvc.ErrTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{mediasvc.ErrUnsupportedType, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
	{mediasvc.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	{sponsorsvc.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{sponsorsvc.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	{paymentsvc.ErrPaymentNotVerified, http.StatusPaymentRequired, "PAYMENT_NOT_VERIFIED"},
	{paymentsvc.ErrGatewayUnavailable, http.StatusBadGateway, "PAYMENT_GATEWAY_UNAVAILABLE"},
	{paymentsvc.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	{authsvc.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{authsvc.ErrResetTokenInvalid, http.StatusBadRequest, "RESET_TOKEN_INVALID"},
	{authsvc.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{authsvc.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},

	{operatorsvc.ErrLocked, http.StatusLocked, "ACCOUNT_LOCKED"},
	{operatorsvc.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{operatorsvc.ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED"},
	{operatorsvc.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{operatorsvc.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
}

// writeServiceError translates a service error into the JSON envelope.
// Unknown errors become a generic 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	var retry *matchessvc.RetryAfterError
	if errors.As(err, &retry) {
		httperrors.WriteRateLimited(w, "too many attempts, try again later", retry.Seconds)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeStatus(w, m.status, m.code, m.target.Error())
			return
		}
	}
	writeInternal(w, "INTERNAL_ERROR", "internal server error")
}
