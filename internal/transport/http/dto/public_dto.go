package dto

import "time"

type CountdownResponse struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type PublicConfigResponse struct {
	RevealAt         time.Time         `json:"reveal_at"`
	ServerTime       time.Time         `json:"server_time"`
	SecondsRemaining int64             `json:"seconds_remaining"`
	Revealed         bool              `json:"revealed"`
	Countdown        CountdownResponse `json:"countdown"`
	SignupFeeKobo    int64             `json:"signup_fee_kobo"`
}

type SponsorResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Link    string `json:"link"`
	LogoURL string `json:"logo_url"`
}

type SponsorsResponse struct {
	Items []SponsorResponse `json:"items"`
}
