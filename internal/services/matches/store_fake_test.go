package matches

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	"github.com/valentina-app/backend/internal/services/rate"
)

// memStore mimics the constraints the Postgres schema enforces: pair
// uniqueness, unique code values, one unused code per user and the
// conditional redemption update.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
	matches  map[string]model.Match
	codes    map[string]model.VIPCode

	failCodeInsert  error
	failMatchDelete error
}

func newMemStore(profiles ...model.Profile) *memStore {
	s := &memStore{
		profiles: map[string]model.Profile{},
		matches:  map[string]model.Match{},
		codes:    map[string]model.VIPCode{},
	}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *memStore) Get(_ context.Context, userID string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrNotFound
	}
	return p, nil
}

func (s *memStore) GetMany(_ context.Context, ids []string) (map[string]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memStore) matchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func (s *memStore) match(id string) model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[id]
}

func (s *memStore) code(id string) model.VIPCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[id]
}

type matchStore struct{ *memStore }

func (m matchStore) Insert(_ context.Context, match model.Match) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(match)
}

func (m matchStore) insertLocked(match model.Match) (model.Match, error) {
	if _, ok := m.profiles[match.MaleUserID]; !ok {
		return model.Match{}, pgrepo.ErrNotFound
	}
	if _, ok := m.profiles[match.FemaleUserID]; !ok {
		return model.Match{}, pgrepo.ErrNotFound
	}
	for _, existing := range m.matches {
		if rules.SamePair(existing, match.MaleUserID, match.FemaleUserID) {
			return model.Match{}, pgrepo.ErrMatchPairExists
		}
	}
	m.matches[match.ID] = match
	return match, nil
}

func (m matchStore) InsertInstantForUser(_ context.Context, matchID, userID string, now time.Time) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	requester, ok := m.profiles[userID]
	if !ok {
		return model.Match{}, pgrepo.ErrNotFound
	}
	matched := map[string]bool{}
	for _, existing := range m.matches {
		matched[existing.MaleUserID] = true
		matched[existing.FemaleUserID] = true
	}
	if matched[userID] {
		return model.Match{}, pgrepo.ErrAlreadyMatched
	}

	candidates := make([]model.Profile, 0)
	for _, p := range m.profiles {
		if p.UserID != userID && p.PaymentStatus && p.Gender == requester.Gender.Opposite() && !matched[p.UserID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return model.Match{}, pgrepo.ErrNoCandidate
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].UserID < candidates[j].UserID
	})

	maleID, femaleID, _ := rules.OrientPair(requester, candidates[0])
	return m.insertLocked(model.Match{
		ID:             matchID,
		MaleUserID:     maleID,
		FemaleUserID:   femaleID,
		IsInstantMatch: true,
		MatchedAt:      now,
	})
}

func (m matchStore) Get(_ context.Context, id string) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return model.Match{}, pgrepo.ErrNotFound
	}
	return match, nil
}

func (m matchStore) ListForUser(_ context.Context, userID string) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Match, 0)
	for _, match := range m.matches {
		if match.Involves(userID) {
			out = append(out, match)
		}
	}
	sortMatches(out)
	return out, nil
}

func (m matchStore) List(_ context.Context) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Match, 0, len(m.matches))
	for _, match := range m.matches {
		out = append(out, match)
	}
	sortMatches(out)
	return out, nil
}

func (m matchStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMatchDelete != nil {
		return false, m.failMatchDelete
	}
	if _, ok := m.matches[id]; !ok {
		return false, nil
	}
	delete(m.matches, id)
	for codeID, c := range m.codes {
		if c.BoundTo(id) {
			c.MatchID = nil
			m.codes[codeID] = c
		}
	}
	return true, nil
}

type codeStore struct{ *memStore }

func (c codeStore) Insert(_ context.Context, code model.VIPCode) (model.VIPCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCodeInsert != nil {
		return model.VIPCode{}, c.failCodeInsert
	}
	for _, existing := range c.codes {
		if existing.Code == code.Code {
			return model.VIPCode{}, pgrepo.ErrCodeTaken
		}
	}
	for _, existing := range c.codes {
		if existing.AssignedUserID == code.AssignedUserID && !existing.IsUsed {
			return model.VIPCode{}, pgrepo.ErrUnusedCodeExists
		}
	}
	c.codes[code.ID] = code
	return code, nil
}

func (c codeStore) CodeExists(_ context.Context, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.codes {
		if existing.Code == value {
			return true, nil
		}
	}
	return false, nil
}

func (c codeStore) HasUnused(_ context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.codes {
		if existing.AssignedUserID == userID && !existing.IsUsed {
			return true, nil
		}
	}
	return false, nil
}

func (c codeStore) Redeem(_ context.Context, value, userID string, now time.Time) (model.VIPCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.codes {
		if existing.Code == value && existing.AssignedUserID == userID && !existing.IsUsed {
			usedAt := now
			existing.IsUsed = true
			existing.UsedAt = &usedAt
			c.codes[id] = existing
			return existing, nil
		}
	}
	return model.VIPCode{}, pgrepo.ErrNotFound
}

func (c codeStore) DeleteUnused(_ context.Context, id string) (model.VIPCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.codes[id]
	if !ok {
		return model.VIPCode{}, pgrepo.ErrNotFound
	}
	if existing.IsUsed {
		return model.VIPCode{}, pgrepo.ErrCodeUsed
	}
	delete(c.codes, id)
	return existing, nil
}

func (c codeStore) DeleteUnusedForMatch(_ context.Context, matchID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for id, existing := range c.codes {
		if existing.BoundTo(matchID) && !existing.IsUsed {
			delete(c.codes, id)
			n++
		}
	}
	return n, nil
}

func (c codeStore) ListRelevantForUser(_ context.Context, userID string) ([]model.VIPCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.VIPCode, 0)
	for _, existing := range c.codes {
		relevant := existing.AssignedUserID == userID
		if existing.MatchID != nil {
			if m, ok := c.matches[*existing.MatchID]; ok && m.Involves(userID) {
				relevant = true
			}
		}
		if relevant {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (c codeStore) List(_ context.Context) ([]model.VIPCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.VIPCode, 0, len(c.codes))
	for _, existing := range c.codes {
		out = append(out, existing)
	}
	return out, nil
}

// memTx restores a snapshot when fn fails. Tests using it run serially.
type memTx struct {
	store *memStore
	calls int
}

func (t *memTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	t.store.mu.Lock()
	matches := make(map[string]model.Match, len(t.store.matches))
	for k, v := range t.store.matches {
		matches[k] = v
	}
	codes := make(map[string]model.VIPCode, len(t.store.codes))
	for k, v := range t.store.codes {
		codes[k] = v
	}
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.matches = matches
		t.store.codes = codes
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type notifierStub struct {
	mu    sync.Mutex
	pairs [][2]string
}

func (n *notifierStub) NotifyMatchAsync(recipient, counterpart model.Profile) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pairs = append(n.pairs, [2]string{recipient.UserID, counterpart.UserID})
}

type limiterStub struct {
	allowed    bool
	retryAfter int64
	resets     int
}

func (l *limiterStub) Allow(context.Context, rate.Policy, string) (int64, bool, error) {
	return l.retryAfter, l.allowed, nil
}

func (l *limiterStub) Reset(context.Context, rate.Policy, string) error {
	l.resets++
	return nil
}

func sortMatches(items []model.Match) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
