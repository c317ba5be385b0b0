package model

import (
	"time"

	"github.com/valentina-app/backend/internal/domain/enums"
)

type Profile struct {
	UserID             string       `json:"user_id"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	PasswordHash       string       `json:"-"`
	Gender             enums.Gender `json:"gender"`
	WhatsAppPhone      string       `json:"whatsapp_phone"`
	About              string       `json:"about"`
	Interests          []string     `json:"interests"`
	Wishlist           string       `json:"wishlist"`
	RelationshipStatus string       `json:"relationship_status"`
	ShowProfileToMatch bool         `json:"show_profile_to_match"`
	PhotoKey           string       `json:"-"`
	PaymentStatus      bool         `json:"payment_status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
