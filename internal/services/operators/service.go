package operators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/pkg/password"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLocked             = errors.New("operator account is temporarily locked")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionExpired     = errors.New("operator session expired")
)

type OperatorStore interface {
	GetByUsername(ctx context.Context, username string) (model.Operator, error)
	Get(ctx context.Context, id string) (model.Operator, error)
	MarkFailure(ctx context.Context, id string, maxAttempts int, lockUntil, now time.Time) (bool, error)
	MarkSuccess(ctx context.Context, id string, now time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, s model.OperatorSession) error
	Touch(ctx context.Context, sid, operatorID string, idleTTL time.Duration, now time.Time) (enums.OperatorRole, error)
	Revoke(ctx context.Context, sid string, now time.Time) error
}

type Dependencies struct {
	Operators OperatorStore
	Sessions  SessionStore
}

type Config struct {
	SessionIdleTTL  time.Duration
	SessionTTL      time.Duration
	MaxFailedLogins int
	LockDuration    time.Duration
}

type LoginInput struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Operator    model.Operator
}

type Service struct {
	deps   Dependencies
	tokens *TokenManager
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(deps Dependencies, tokens *TokenManager, cfg Config, logger *zap.Logger) *Service {
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = 30 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.MaxFailedLogins <= 0 {
		cfg.MaxFailedLogins = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		deps:   deps,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login verifies operator credentials and opens a server-side session.
// Unknown usernames, wrong passwords and disabled accounts all report
// ErrInvalidCredentials; only a lockout is reported distinctly.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return LoginResult{}, ErrInvalidInput
	}

	now := s.now().UTC()
	op, err := s.deps.Operators.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("get operator: %w", err)
	}
	if op.LockedUntil != nil && op.LockedUntil.After(now) {
		return LoginResult{}, ErrLocked
	}
	if !op.IsActive {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := password.Check(op.PasswordHash, in.Password); err != nil {
		locked, markErr := s.deps.Operators.MarkFailure(ctx, op.ID, s.cfg.MaxFailedLogins, now.Add(s.cfg.LockDuration), now)
		if markErr != nil {
			return LoginResult{}, fmt.Errorf("record failed login: %w", markErr)
		}
		if locked {
			s.logger.Warn("operator locked after failed logins",
				zap.String("operator_id", op.ID),
				zap.String("ip", in.IP),
			)
			return LoginResult{}, ErrLocked
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.deps.Operators.MarkSuccess(ctx, op.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}

	session := model.OperatorSession{
		ID:            uuid.NewString(),
		OperatorID:    op.ID,
		CreatedAt:     now,
		LastSeenAt:    now,
		IdleExpiresAt: now.Add(s.cfg.SessionIdleTTL),
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
		IP:            in.IP,
		UserAgent:     in.UserAgent,
	}
	if err := s.deps.Sessions.Create(ctx, session); err != nil {
		return LoginResult{}, fmt.Errorf("create operator session: %w", err)
	}

	token, expires, err := s.tokens.Issue(op.ID, op.Username, session.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	if expires.After(session.ExpiresAt) {
		expires = session.ExpiresAt
	}

	s.logger.Info("operator logged in", zap.String("operator_id", op.ID), zap.String("ip", in.IP))
	op.LastLoginAt = &now
	return LoginResult{AccessToken: token, ExpiresAt: expires, Operator: op}, nil
}

// Authenticate resolves a bearer token to a live session. The session row is
// touched on every call, so revocation and idle expiry apply immediately.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	now := s.now().UTC()
	claims, err := s.tokens.Parse(accessToken, now)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	role, err := s.deps.Sessions.Touch(ctx, claims.SID, claims.OperatorID, s.cfg.SessionIdleTTL, now)
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return Principal{}, ErrSessionExpired
		}
		return Principal{}, fmt.Errorf("touch operator session: %w", err)
	}

	return Principal{
		OperatorID: claims.OperatorID,
		Username:   claims.Username,
		Role:       role,
		SID:        claims.SID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.deps.Sessions.Revoke(ctx, sid, s.now().UTC()); err != nil {
		return fmt.Errorf("revoke operator session: %w", err)
	}
	return nil
}

func (s *Service) Me(ctx context.Context, p Principal) (model.Operator, error) {
	op, err := s.deps.Operators.Get(ctx, p.OperatorID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return model.Operator{}, ErrUnauthorized
		}
		return model.Operator{}, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}
