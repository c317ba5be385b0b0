package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/valentina-app/backend/internal/domain/model"
	authsvc "github.com/valentina-app/backend/internal/services/auth"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	"github.com/valentina-app/backend/internal/transport/http/dto"
)

// multipart framing allowance on top of the image limit
const multipartOverhead = 64 << 10

type MeService interface {
	Get(ctx context.Context, userID string) (model.Profile, error)
	UpdateOwn(ctx context.Context, userID string, patch profilesvc.ContentPatch) (model.Profile, error)
	UploadPhoto(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error)
	PhotoURL(ctx context.Context, p model.Profile) string
}

type MeHandler struct {
	profiles      MeService
	maxPhotoBytes int64
}

func NewMeHandler(profiles MeService, maxPhotoBytes int64) *MeHandler {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = 600 * 1024
	}
	return &MeHandler{profiles: profiles, maxPhotoBytes: maxPhotoBytes}
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	p, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, h.meResponse(r.Context(), p))
}

func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	p, err := h.profiles.UpdateOwn(r.Context(), identity.UserID, profilesvc.ContentPatch{
		WhatsAppPhone:      req.WhatsAppPhone,
		About:              req.About,
		Interests:          req.Interests,
		Wishlist:           req.Wishlist,
		RelationshipStatus: req.RelationshipStatus,
		ShowProfileToMatch: req.ShowProfileToMatch,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, h.meResponse(r.Context(), p))
}

func (h *MeHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	file, contentType, size, ok := readUpload(w, r, h.maxPhotoBytes)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.profiles.UploadPhoto(r.Context(), identity.UserID, contentType, file, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, dto.PhotoResponse{PhotoURL: url})
}

func (h *MeHandler) meResponse(ctx context.Context, p model.Profile) dto.MeResponse {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	return dto.MeResponse{
		UserID:             p.UserID,
		Name:               p.Name,
		Email:              p.Email,
		Gender:             string(p.Gender),
		WhatsAppPhone:      p.WhatsAppPhone,
		About:              p.About,
		Interests:          interests,
		Wishlist:           p.Wishlist,
		RelationshipStatus: p.RelationshipStatus,
		ShowProfileToMatch: p.ShowProfileToMatch,
		PhotoURL:           h.profiles.PhotoURL(ctx, p),
		PaymentStatus:      p.PaymentStatus,
		CreatedAt:          p.CreatedAt,
	}
}

// readUpload pulls the "file" part of a multipart form. It writes the error
// response itself and reports ok=false when the request is unusable.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (io.ReadCloser, string, int64, bool) {
	limit := maxBytes + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeStatus(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "image is too large")
			return nil, "", 0, false
		}
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return nil, "", 0, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return nil, "", 0, false
	}
	if header.Size <= 0 {
		_ = file.Close()
		writeBadRequest(w, "VALIDATION_ERROR", "file is empty")
		return nil, "", 0, false
	}
	if header.Size > maxBytes {
		_ = file.Close()
		writeStatus(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "image is too large")
		return nil, "", 0, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return file, contentType, header.Size, true
}
