package matches

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	"github.com/valentina-app/backend/internal/metrics"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	"github.com/valentina-app/backend/internal/services/rate"
)

// ProfileReader loads the profiles a match pairs together.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (model.Profile, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.Profile, error)
}

// MatchStore persists matches. Delete reports whether a row was removed.
type MatchStore interface {
	Insert(ctx context.Context, m model.Match) (model.Match, error)
	InsertInstantForUser(ctx context.Context, matchID, userID string, now time.Time) (model.Match, error)
	Get(ctx context.Context, id string) (model.Match, error)
	ListForUser(ctx context.Context, userID string) ([]model.Match, error)
	List(ctx context.Context) ([]model.Match, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CodeStore persists VIP codes. Redeem and DeleteUnused only act on codes
// that have not been used yet.
type CodeStore interface {
	Insert(ctx context.Context, c model.VIPCode) (model.VIPCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	HasUnused(ctx context.Context, userID string) (bool, error)
	Redeem(ctx context.Context, code, userID string, now time.Time) (model.VIPCode, error)
	DeleteUnused(ctx context.Context, id string) (model.VIPCode, error)
	DeleteUnusedForMatch(ctx context.Context, matchID string) (int64, error)
	ListRelevantForUser(ctx context.Context, userID string) ([]model.VIPCode, error)
	List(ctx context.Context) ([]model.VIPCode, error)
}

// TxRunner groups store calls into one transaction. The stores must join
// the transaction carried by the context passed to fn.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RedeemLimiter throttles VIP code attempts per user. Allow returns the
// retry-after in seconds when the attempt is refused.
type RedeemLimiter interface {
	Allow(ctx context.Context, p rate.Policy, subject string) (int64, bool, error)
	Reset(ctx context.Context, p rate.Policy, subject string) error
}

// Notifier receives best-effort "match revealed" events. Implementations
// must not block the caller.
type Notifier interface {
	NotifyMatchAsync(recipient, counterpart model.Profile)
}

// Dependencies are the collaborators of Service. Limiter and Notifier may
// be nil to disable throttling and inline announcements.
type Dependencies struct {
	Profiles ProfileReader
	Matches  MatchStore
	Codes    CodeStore
	// Tx is optional. Without it VIP issuance undoes a half-written pair
	// by deleting the match.
	Tx       TxRunner
	Limiter  RedeemLimiter
	Notifier Notifier
}

// Config tunes code generation, redeem throttling and the instant when
// matches become visible. Zero code settings fall back to defaults.
type Config struct {
	CodePrefix     string
	CodeLength     int
	RedeemAttempts int
	RedeemWindow   time.Duration
	RevealAt       time.Time
}

type Service struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
	random io.Reader
}

const maxCodeAttempts = 8

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if strings.TrimSpace(cfg.CodePrefix) == "" {
		cfg.CodePrefix = "VIP-"
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CreateManualMatch pairs two users chosen by an operator. The pair is
// oriented by gender; the unique pair index rejects duplicates in either
// order.
func (s *Service) CreateManualMatch(ctx context.Context, userA, userB string) (model.Match, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return model.Match{}, ErrValidation
	}
	if userA == userB {
		return model.Match{}, ErrSelfMatch
	}

	maleID, femaleID, err := s.orient(ctx, userA, userB)
	if err != nil {
		return model.Match{}, err
	}

	now := s.now().UTC()
	m := model.Match{
		ID:           uuid.NewString(),
		MaleUserID:   maleID,
		FemaleUserID: femaleID,
		MatchedAt:    now,
	}
	announce := s.announcesInline(now)
	if announce {
		// sent below, so the reveal sweep must not claim it again
		m.NotifiedAt = &now
	}

	created, err := s.deps.Matches.Insert(ctx, m)
	if err != nil {
		return model.Match{}, mapStoreErr(err)
	}

	metrics.IncMatchCreated("manual")
	s.logger.Info("manual match created",
		zap.String("match_id", created.ID),
		zap.String("male_user_id", created.MaleUserID),
		zap.String("female_user_id", created.FemaleUserID),
	)
	if announce {
		s.notifyPair(ctx, created)
	}
	return created, nil
}

// CreateAutomaticInstantMatch pairs userID with the first available unmatched
// user of the opposite gender. Running out of candidates is an expected
// outcome reported as ErrNoAvailableCandidate.
func (s *Service) CreateAutomaticInstantMatch(ctx context.Context, userID string) (model.Match, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Match{}, ErrValidation
	}

	created, err := s.deps.Matches.InsertInstantForUser(ctx, uuid.NewString(), userID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrNoCandidate):
			metrics.IncInstantMatchRequest("no_candidate")
			return model.Match{}, ErrNoAvailableCandidate
		case errors.Is(err, pgrepo.ErrAlreadyMatched):
			metrics.IncInstantMatchRequest("already_matched")
			return model.Match{}, ErrAlreadyMatched
		case errors.Is(err, pgrepo.ErrMatchPairExists):
			// lost a race against a concurrent pairing of the same two users
			metrics.IncInstantMatchRequest("already_matched")
			return model.Match{}, ErrAlreadyMatched
		}
		metrics.IncInstantMatchRequest("error")
		return model.Match{}, mapStoreErr(err)
	}

	metrics.IncInstantMatchRequest("matched")
	metrics.IncMatchCreated("instant")
	s.logger.Info("instant match created",
		zap.String("match_id", created.ID),
		zap.String("requested_by", userID),
	)
	return created, nil
}

type IssuedCode struct {
	Code  model.VIPCode
	Match model.Match
}

// IssueVIPCodeWithMatch creates an instant match between assignedUser and
// matchTarget together with an unused code bound to it. Either both rows
// exist afterwards or neither does.
func (s *Service) IssueVIPCodeWithMatch(ctx context.Context, assignedUser, matchTarget string) (IssuedCode, error) {
	assignedUser, matchTarget = strings.TrimSpace(assignedUser), strings.TrimSpace(matchTarget)
	if assignedUser == "" || matchTarget == "" {
		return IssuedCode{}, ErrValidation
	}
	if assignedUser == matchTarget {
		return IssuedCode{}, ErrSelfMatch
	}

	maleID, femaleID, err := s.orient(ctx, assignedUser, matchTarget)
	if err != nil {
		return IssuedCode{}, err
	}

	has, err := s.deps.Codes.HasUnused(ctx, assignedUser)
	if err != nil {
		return IssuedCode{}, fmt.Errorf("check unused vip code: %w", err)
	}
	if has {
		return IssuedCode{}, ErrAlreadyHasCode
	}

	now := s.now().UTC()
	pending := model.Match{
		ID:             uuid.NewString(),
		MaleUserID:     maleID,
		FemaleUserID:   femaleID,
		IsInstantMatch: true,
		MatchedAt:      now,
	}

	var issued IssuedCode
	if s.deps.Tx != nil {
		err = s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
			match, err := s.deps.Matches.Insert(ctx, pending)
			if err != nil {
				return err
			}
			code, err := s.insertCode(ctx, assignedUser, &match.ID, now)
			if err != nil {
				return err
			}
			issued = IssuedCode{Code: code, Match: match}
			return nil
		})
	} else {
		issued, err = s.issueWithCompensation(ctx, pending, assignedUser, now)
	}
	if err != nil {
		return IssuedCode{}, mapStoreErr(err)
	}

	metrics.IncMatchCreated("vip")
	metrics.IncVIPCodeIssued("bound")
	s.logger.Info("vip code issued",
		zap.String("code_id", issued.Code.ID),
		zap.String("match_id", issued.Match.ID),
		zap.String("assigned_user_id", assignedUser),
	)
	return issued, nil
}

func (s *Service) issueWithCompensation(ctx context.Context, pending model.Match, assignedUser string, now time.Time) (IssuedCode, error) {
	match, err := s.deps.Matches.Insert(ctx, pending)
	if err != nil {
		return IssuedCode{}, err
	}

	code, err := s.insertCode(ctx, assignedUser, &match.ID, now)
	if err == nil {
		return IssuedCode{Code: code, Match: match}, nil
	}

	// the request context may already be done; the undo must still run
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, delErr := s.deps.Matches.Delete(undoCtx, match.ID); delErr != nil {
		s.logger.Error("vip issuance left an orphan match",
			zap.Bool("data_integrity", true),
			zap.String("match_id", match.ID),
			zap.String("assigned_user_id", assignedUser),
			zap.NamedError("insert_error", err),
			zap.NamedError("delete_error", delErr),
		)
	}
	return IssuedCode{}, err
}

// IssueLegacyVIPCode creates a code that is not bound to any match. It is
// still subject to the one-unused-code-per-user rule.
func (s *Service) IssueLegacyVIPCode(ctx context.Context, assignedUser string) (model.VIPCode, error) {
	assignedUser = strings.TrimSpace(assignedUser)
	if assignedUser == "" {
		return model.VIPCode{}, ErrValidation
	}
	if _, err := s.deps.Profiles.Get(ctx, assignedUser); err != nil {
		return model.VIPCode{}, mapStoreErr(err)
	}

	has, err := s.deps.Codes.HasUnused(ctx, assignedUser)
	if err != nil {
		return model.VIPCode{}, fmt.Errorf("check unused vip code: %w", err)
	}
	if has {
		return model.VIPCode{}, ErrAlreadyHasCode
	}

	code, err := s.insertCode(ctx, assignedUser, nil, s.now().UTC())
	if err != nil {
		return model.VIPCode{}, mapStoreErr(err)
	}

	metrics.IncVIPCodeIssued("legacy")
	s.logger.Info("legacy vip code issued", zap.String("code_id", code.ID), zap.String("assigned_user_id", assignedUser))
	return code, nil
}

// insertCode generates code values until one is free. Collisions are
// retried here and never reach the caller unless every attempt collides.
func (s *Service) insertCode(ctx context.Context, assignedUser string, matchID *string, now time.Time) (model.VIPCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		value, err := rules.GenerateCode(s.cfg.CodePrefix, s.cfg.CodeLength, s.random)
		if err != nil {
			return model.VIPCode{}, err
		}

		exists, err := s.deps.Codes.CodeExists(ctx, value)
		if err != nil {
			return model.VIPCode{}, fmt.Errorf("check vip code uniqueness: %w", err)
		}
		if exists {
			continue
		}

		code, err := s.deps.Codes.Insert(ctx, model.VIPCode{
			ID:             uuid.NewString(),
			Code:           value,
			AssignedUserID: assignedUser,
			MatchID:        matchID,
			CreatedAt:      now,
		})
		if errors.Is(err, pgrepo.ErrCodeTaken) {
			continue
		}
		return code, err
	}
	return model.VIPCode{}, fmt.Errorf("generate unique vip code: %d attempts collided", maxCodeAttempts)
}

// RedeemVIPCode consumes the user's unused code. Unknown, foreign and
// already used codes all yield ErrInvalidCode.
func (s *Service) RedeemVIPCode(ctx context.Context, userID, rawCode string) (model.VIPCode, error) {
	userID = strings.TrimSpace(userID)
	code := rules.NormalizeCode(rawCode)
	if userID == "" || code == "" {
		return model.VIPCode{}, ErrValidation
	}

	policy := s.redeemPolicy()
	if s.deps.Limiter != nil {
		retryAfter, allowed, err := s.deps.Limiter.Allow(ctx, policy, userID)
		if err != nil {
			return model.VIPCode{}, fmt.Errorf("check redeem rate: %w", err)
		}
		if !allowed {
			metrics.IncVIPRedemption("rate_limited")
			return model.VIPCode{}, &RetryAfterError{Seconds: retryAfter}
		}
	}

	redeemed, err := s.deps.Codes.Redeem(ctx, code, userID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			metrics.IncVIPRedemption("invalid")
			return model.VIPCode{}, ErrInvalidCode
		}
		return model.VIPCode{}, fmt.Errorf("redeem vip code: %w", err)
	}

	metrics.IncVIPRedemption("redeemed")
	s.logger.Info("vip code redeemed", zap.String("code_id", redeemed.ID), zap.String("user_id", userID))

	if s.deps.Limiter != nil {
		if err := s.deps.Limiter.Reset(ctx, policy, userID); err != nil {
			s.logger.Warn("reset redeem rate window failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if redeemed.MatchID != nil {
		s.notifyRedeemed(ctx, userID, *redeemed.MatchID)
	}
	return redeemed, nil
}

func (s *Service) redeemPolicy() rate.Policy {
	return rate.Policy{Name: "vip_redeem", Limit: s.cfg.RedeemAttempts, Window: s.cfg.RedeemWindow}
}

// VisibleMatchesFor returns the user's matches after the instant-match
// gate. It is recomputed from storage on every call.
func (s *Service) VisibleMatchesFor(ctx context.Context, userID string) ([]model.Match, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrValidation
	}

	matches, err := s.deps.Matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		return []model.Match{}, nil
	}
	codes, err := s.deps.Codes.ListRelevantForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list vip codes: %w", err)
	}
	return rules.VisibleMatches(userID, matches, codes), nil
}

// RevealedMatchesFor applies the countdown on top of VisibleMatchesFor:
// regular matches stay hidden until the reveal time, instant ones do not.
func (s *Service) RevealedMatchesFor(ctx context.Context, userID string) ([]model.Match, error) {
	visible, err := s.VisibleMatchesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(s.cfg.RevealAt) {
		return visible, nil
	}

	out := visible[:0]
	for _, m := range visible {
		if m.IsInstantMatch {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) HasPendingCode(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrValidation
	}
	return s.deps.Codes.HasUnused(ctx, userID)
}

// DeleteMatch removes a match and any unused code bound to it. Used codes
// are kept as history with their match reference cleared by the store.
func (s *Service) DeleteMatch(ctx context.Context, matchID string) error {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return ErrValidation
	}

	run := func(ctx context.Context) error {
		if _, err := s.deps.Codes.DeleteUnusedForMatch(ctx, matchID); err != nil {
			return err
		}
		deleted, err := s.deps.Matches.Delete(ctx, matchID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	}

	var err error
	if s.deps.Tx != nil {
		err = s.deps.Tx.InTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return mapStoreErr(err)
	}

	s.logger.Info("match deleted", zap.String("match_id", matchID))
	return nil
}

// DeleteVIPCode removes an unused code and the match it was issued with.
func (s *Service) DeleteVIPCode(ctx context.Context, codeID string) error {
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return ErrValidation
	}

	run := func(ctx context.Context) error {
		code, err := s.deps.Codes.DeleteUnused(ctx, codeID)
		if err != nil {
			return err
		}
		if code.MatchID == nil {
			return nil
		}
		if _, err := s.deps.Matches.Delete(ctx, *code.MatchID); err != nil {
			return err
		}
		return nil
	}

	var err error
	if s.deps.Tx != nil {
		err = s.deps.Tx.InTx(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return mapStoreErr(err)
	}

	s.logger.Info("vip code deleted", zap.String("code_id", codeID))
	return nil
}

type Overview struct {
	Matches  []model.Match
	VIPCodes []model.VIPCode
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	matches, err := s.deps.Matches.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list matches: %w", err)
	}
	codes, err := s.deps.Codes.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list vip codes: %w", err)
	}
	return Overview{Matches: matches, VIPCodes: codes}, nil
}

func (s *Service) orient(ctx context.Context, userA, userB string) (string, string, error) {
	a, err := s.deps.Profiles.Get(ctx, userA)
	if err != nil {
		return "", "", mapStoreErr(err)
	}
	b, err := s.deps.Profiles.Get(ctx, userB)
	if err != nil {
		return "", "", mapStoreErr(err)
	}

	maleID, femaleID, ok := rules.OrientPair(a, b)
	if !ok {
		return "", "", ErrSameGender
	}
	return maleID, femaleID, nil
}

// announcesInline reports whether a regular match created at now is emailed
// right away. Before the reveal time the worker sweep announces it instead.
func (s *Service) announcesInline(now time.Time) bool {
	return s.deps.Notifier != nil && !now.Before(s.cfg.RevealAt)
}

func (s *Service) notifyPair(ctx context.Context, m model.Match) {
	profiles, err := s.deps.Profiles.GetMany(ctx, []string{m.MaleUserID, m.FemaleUserID})
	if err != nil {
		s.logger.Warn("load profiles for match notification failed", zap.String("match_id", m.ID), zap.Error(err))
		return
	}
	male, okM := profiles[m.MaleUserID]
	female, okF := profiles[m.FemaleUserID]
	if !okM || !okF {
		return
	}
	s.deps.Notifier.NotifyMatchAsync(male, female)
	s.deps.Notifier.NotifyMatchAsync(female, male)
}

func (s *Service) notifyRedeemed(ctx context.Context, userID, matchID string) {
	if s.deps.Notifier == nil {
		return
	}
	m, err := s.deps.Matches.Get(ctx, matchID)
	if err != nil {
		s.logger.Warn("load redeemed match failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	counterpartID := m.Counterpart(userID)
	profiles, err := s.deps.Profiles.GetMany(ctx, []string{userID, counterpartID})
	if err != nil {
		s.logger.Warn("load profiles for match notification failed", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	recipient, ok := profiles[userID]
	counterpart, okC := profiles[counterpartID]
	if !ok || !okC {
		return
	}
	s.deps.Notifier.NotifyMatchAsync(recipient, counterpart)
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSameGender), errors.Is(err, ErrSelfMatch):
		return err
	case errors.Is(err, pgrepo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, pgrepo.ErrMatchPairExists):
		return ErrDuplicateMatch
	case errors.Is(err, pgrepo.ErrUnusedCodeExists):
		return ErrAlreadyHasCode
	case errors.Is(err, pgrepo.ErrCodeUsed):
		return ErrCodeAlreadyUsed
	default:
		return err
	}
}
