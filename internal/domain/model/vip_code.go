package model

import "time"

type VIPCode struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	AssignedUserID string     `json:"assigned_user_id"`
	MatchID        *string    `json:"match_id"`
	IsUsed         bool       `json:"is_used"`
	UsedAt         *time.Time `json:"used_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (c VIPCode) BoundTo(matchID string) bool {
	return c.MatchID != nil && *c.MatchID == matchID
}
