package model

import "time"

type Sponsor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	LogoURL   string    `json:"logo_url"`
	LogoKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
