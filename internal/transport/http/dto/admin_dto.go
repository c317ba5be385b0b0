package dto

import (
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
)

type OperatorLoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type OperatorResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type OperatorLoginResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Operator    OperatorResponse `json:"operator"`
}

type CreateMatchRequest struct {
	UserA string `json:"user_a" validate:"required,uuid"`
	UserB string `json:"user_b" validate:"required,uuid"`
}

type IssueVIPCodeRequest struct {
	AssignedUserID string `json:"assigned_user_id" validate:"required,uuid"`
	MatchTargetID  string `json:"match_target_id" validate:"required,uuid"`
}

type IssueLegacyVIPCodeRequest struct {
	AssignedUserID string `json:"assigned_user_id" validate:"required,uuid"`
}

type IssuedVIPCodeResponse struct {
	Code  model.VIPCode `json:"code"`
	Match *model.Match  `json:"match,omitempty"`
}

type AdminUpdateUserRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=80"`
	Email         *string `json:"email" validate:"omitempty,email"`
	WhatsAppPhone *string `json:"whatsapp_phone" validate:"omitempty,max=32"`
	Gender        *string `json:"gender" validate:"omitempty,oneof=male female"`
	PaymentStatus *bool   `json:"payment_status"`
}

type CreateSponsorRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Link    string `json:"link" validate:"required,http_url"`
	LogoURL string `json:"logo_url" validate:"omitempty,http_url"`
}

type AdminProfileResponse struct {
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Gender        string    `json:"gender"`
	WhatsAppPhone string    `json:"whatsapp_phone"`
	PaymentStatus bool      `json:"payment_status"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type OverviewResponse struct {
	Profiles []AdminProfileResponse `json:"profiles"`
	Matches  []model.Match          `json:"matches"`
	VIPCodes []model.VIPCode        `json:"vip_codes"`
	Sponsors []SponsorResponse      `json:"sponsors"`
}
