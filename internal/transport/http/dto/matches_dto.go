package dto

import "time"

type MatchCardResponse struct {
	MatchID            string    `json:"match_id"`
	IsInstantMatch     bool      `json:"is_instant_match"`
	MatchedAt          time.Time `json:"matched_at"`
	Name               string    `json:"name"`
	PhotoURL           string    `json:"photo_url,omitempty"`
	About              string    `json:"about,omitempty"`
	Interests          []string  `json:"interests,omitempty"`
	Wishlist           string    `json:"wishlist,omitempty"`
	RelationshipStatus string    `json:"relationship_status,omitempty"`
	WhatsAppLink       string    `json:"whatsapp_link"`
}

type MatchesResponse struct {
	Items            []MatchCardResponse `json:"items"`
	Revealed         bool                `json:"revealed"`
	RevealAt         time.Time           `json:"reveal_at"`
	SecondsRemaining int64               `json:"seconds_remaining"`
}

type InstantMatchResponse struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"match_id,omitempty"`
	Message string `json:"message"`
}

type RedeemVIPCodeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type RedeemVIPCodeResponse struct {
	OK      bool   `json:"ok"`
	MatchID string `json:"match_id,omitempty"`
}

type VIPStatusResponse struct {
	HasPendingCode bool `json:"has_pending_code"`
}
