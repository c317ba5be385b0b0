package rules

import (
	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
)

// OrientPair assigns two profiles to the male and female ledger columns.
// ok is false when the profiles are the same user or do not have opposite genders.
func OrientPair(a, b model.Profile) (maleID, femaleID string, ok bool) {
	if a.UserID == "" || b.UserID == "" || a.UserID == b.UserID {
		return "", "", false
	}
	if !a.Gender.Valid() || a.Gender.Opposite() != b.Gender {
		return "", "", false
	}
	if a.Gender == enums.GenderMale {
		return a.UserID, b.UserID, true
	}
	return b.UserID, a.UserID, true
}

// SamePair reports whether m pairs a and b in either orientation.
func SamePair(m model.Match, a, b string) bool {
	return (m.MaleUserID == a && m.FemaleUserID == b) || (m.MaleUserID == b && m.FemaleUserID == a)
}
