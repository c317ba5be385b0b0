package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/pkg/password"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
)

const (
	MinRefreshTTL = 7 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	resetTokenTTL = time.Hour
)

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (model.Profile, error)
	SetPasswordHash(ctx context.Context, userID, hash string, now time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type ResetTokenStore interface {
	SaveResetToken(ctx context.Context, tokenHash, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (string, error)
}

type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, p model.Profile, link string)
}

type Dependencies struct {
	Accounts    AccountStore
	Sessions    SessionStore
	ResetTokens ResetTokenStore
	Notifier    ResetNotifier
}

type Config struct {
	RefreshTTL     time.Duration
	ResetURLPrefix string
}

type Service struct {
	jwt    *JWTManager
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(jwtManager *JWTManager, deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if cfg.RefreshTTL < MinRefreshTTL {
		cfg.RefreshTTL = MinRefreshTTL
	}
	if cfg.RefreshTTL > MaxRefreshTTL {
		cfg.RefreshTTL = MaxRefreshTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		jwt:    jwtManager,
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks email and password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plain string) (AuthResult, error) {
	if strings.TrimSpace(email) == "" || plain == "" {
		return AuthResult{}, ErrInvalidInput
	}

	profile, err := s.deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("get account: %w", err)
	}
	if err := password.Check(profile.PasswordHash, plain); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.IssueForUser(ctx, profile.UserID)
}

func (s *Service) IssueForUser(ctx context.Context, userID string) (AuthResult, error) {
	if strings.TrimSpace(userID) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	session := SessionRecord{
		SID:       sessionID,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.deps.Sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(userID, sessionID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		UserID:        userID,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.deps.Sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.cfg.RefreshTTL)
	if err := s.deps.Sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		UserID:        session.UserID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.deps.Sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.deps.Sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

// RequestPasswordReset mails a one-time reset link. It succeeds silently for
// unknown emails so the endpoint cannot reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	profile, err := s.deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}

	token, err := NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.deps.ResetTokens.SaveResetToken(ctx, HashToken(token), profile.UserID, resetTokenTTL); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	if s.deps.Notifier != nil {
		s.deps.Notifier.NotifyPasswordReset(ctx, profile, s.cfg.ResetURLPrefix+token)
	}
	return nil
}

// ResetPassword consumes the token, stores the new hash and ends every
// session of the user.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	userID, err := s.deps.ResetTokens.ConsumeResetToken(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	if err := s.deps.Accounts.SetPasswordHash(ctx, userID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("store password hash: %w", err)
	}

	if err := s.deps.Sessions.DeleteAllForUser(ctx, userID); err != nil {
		s.logger.Warn("drop sessions after password reset failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}
