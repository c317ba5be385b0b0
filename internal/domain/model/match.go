package model

import "time"

// Match pairs one male and one female profile. The columns are assigned by
// gender, never by who initiated the pairing.
type Match struct {
	ID             string     `json:"id"`
	MaleUserID     string     `json:"male_user_id"`
	FemaleUserID   string     `json:"female_user_id"`
	IsInstantMatch bool       `json:"is_instant_match"`
	MatchedAt      time.Time  `json:"matched_at"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
}

func (m Match) Involves(userID string) bool {
	return userID != "" && (m.MaleUserID == userID || m.FemaleUserID == userID)
}

// Counterpart returns the other side of the pairing, or "" if userID is not part of it.
func (m Match) Counterpart(userID string) string {
	switch userID {
	case m.MaleUserID:
		return m.FemaleUserID
	case m.FemaleUserID:
		return m.MaleUserID
	default:
		return ""
	}
}
