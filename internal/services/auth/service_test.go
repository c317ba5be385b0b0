package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/pkg/password"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	redrepo "github.com/valentina-app/backend/internal/repo/redis"
	"github.com/valentina-app/backend/internal/services/auth"
)

type stubAccounts struct {
	mu       sync.Mutex
	byEmail  map[string]model.Profile
	setCalls int
}

func (s *stubAccounts) GetByEmail(_ context.Context, email string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return model.Profile{}, pgrepo.ErrNotFound
	}
	return p, nil
}

func (s *stubAccounts) SetPasswordHash(_ context.Context, userID, hash string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, p := range s.byEmail {
		if p.UserID == userID {
			p.PasswordHash = hash
			s.byEmail[email] = p
			s.setCalls++
			return nil
		}
	}
	return pgrepo.ErrNotFound
}

type captureNotifier struct {
	link string
}

func (c *captureNotifier) NotifyPasswordReset(_ context.Context, _ model.Profile, link string) {
	c.link = link
}

func newTestService(t *testing.T) (*auth.Service, *stubAccounts, *captureNotifier) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := password.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	accounts := &stubAccounts{byEmail: map[string]model.Profile{
		"ada@example.com": {UserID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: hash},
	}}
	notifier := &captureNotifier{}
	sessions := redrepo.NewSessionRepo(client)

	svc := auth.NewService(
		auth.NewJWTManager("test-secret", "valentina", 15*time.Minute),
		auth.Dependencies{
			Accounts:    accounts,
			Sessions:    sessions,
			ResetTokens: sessions,
			Notifier:    notifier,
		},
		auth.Config{RefreshTTL: 30 * 24 * time.Hour, ResetURLPrefix: "https://valentina.app/reset?token="},
		nil,
	)
	return svc, accounts, notifier
}

func TestLoginIssuesValidAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.UserID != "u1" || res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("unexpected auth result: %+v", res)
	}

	claims, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims user: %s", claims.UserID)
	}
}

func TestLoginHidesWhetherEmailExists(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, errWrongPassword := svc.Login(ctx, "ada@example.com", "wrong-horse")
	_, errUnknownEmail := svc.Login(ctx, "eve@example.com", "correct-horse")

	if !errors.Is(errWrongPassword, auth.ErrInvalidCredentials) || !errors.Is(errUnknownEmail, auth.ErrInvalidCredentials) {
		t.Fatalf("expected identical invalid credentials errors, got %v / %v", errWrongPassword, errUnknownEmail)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected replayed refresh token to be rejected, got %v", err)
	}
}

func TestLogoutInvalidatesAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateAccessToken(ctx, res.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, accounts, notifier := newTestService(t)
	ctx := context.Background()

	session, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := strings.TrimPrefix(notifier.link, "https://valentina.app/reset?token=")
	if token == "" || token == notifier.link {
		t.Fatalf("unexpected reset link: %q", notifier.link)
	}

	if err := svc.ResetPassword(ctx, token, "new-password-1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if accounts.setCalls != 1 {
		t.Fatalf("expected one password update, got %d", accounts.setCalls)
	}
	if err := svc.ResetPassword(ctx, token, "new-password-2"); !errors.Is(err, auth.ErrResetTokenInvalid) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, session.AccessToken); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected old sessions dropped after reset, got %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "new-password-1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	svc, _, notifier := newTestService(t)

	if err := svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if notifier.link != "" {
		t.Fatalf("no email should be sent for unknown address")
	}
}
