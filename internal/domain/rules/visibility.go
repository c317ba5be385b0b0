package rules

import "github.com/valentina-app/backend/internal/domain/model"

// VisibleMatches filters the matches involving userID down to the ones the
// user may currently see. Regular matches are always visible. An instant
// match becomes visible once a code bound to it has been redeemed; when no
// code is bound to it, a redeemed unbound code held by the user reveals it.
//
// The result keeps the input order and never aliases codes.
func VisibleMatches(userID string, matches []model.Match, codes []model.VIPCode) []model.Match {
	out := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if !m.Involves(userID) {
			continue
		}
		if !m.IsInstantMatch || instantRevealed(userID, m, codes) {
			out = append(out, m)
		}
	}
	return out
}

func instantRevealed(userID string, m model.Match, codes []model.VIPCode) bool {
	bound := false
	for _, c := range codes {
		if !c.BoundTo(m.ID) {
			continue
		}
		bound = true
		if c.IsUsed {
			return true
		}
	}
	if bound {
		return false
	}

	for _, c := range codes {
		if c.MatchID == nil && c.AssignedUserID == userID && c.IsUsed {
			return true
		}
	}
	return false
}
