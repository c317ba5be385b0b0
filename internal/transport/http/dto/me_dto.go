package dto

import "time"

type MeResponse struct {
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Gender             string    `json:"gender"`
	WhatsAppPhone      string    `json:"whatsapp_phone"`
	About              string    `json:"about"`
	Interests          []string  `json:"interests"`
	Wishlist           string    `json:"wishlist"`
	RelationshipStatus string    `json:"relationship_status"`
	ShowProfileToMatch bool      `json:"show_profile_to_match"`
	PhotoURL           string    `json:"photo_url"`
	PaymentStatus      bool      `json:"payment_status"`
	CreatedAt          time.Time `json:"created_at"`
}

type UpdateMeRequest struct {
	WhatsAppPhone      *string  `json:"whatsapp_phone" validate:"omitempty,max=32"`
	About              *string  `json:"about" validate:"omitempty,max=1000"`
	Interests          []string `json:"interests" validate:"omitempty,max=12,dive,required,max=40"`
	Wishlist           *string  `json:"wishlist" validate:"omitempty,max=1000"`
	RelationshipStatus *string  `json:"relationship_status" validate:"omitempty,max=40"`
	ShowProfileToMatch *bool    `json:"show_profile_to_match"`
}

type PhotoResponse struct {
	PhotoURL string `json:"photo_url"`
}

type VerifyPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=100"`
}

type VerifyPaymentResponse struct {
	OK          bool   `json:"ok"`
	Reference   string `json:"reference"`
	AlreadyPaid bool   `json:"already_paid"`
}
