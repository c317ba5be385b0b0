package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/domain/rules"
	"github.com/valentina-app/backend/internal/infra/mailer"
	"github.com/valentina-app/backend/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Config struct {
	AppURL      string
	RevealAt    time.Time
	Timezone    *time.Location
	SendTimeout time.Duration
}

// Service renders and sends transactional emails. Sends triggered from
// request paths run in the background and never fail the caller.
type Service struct {
	mailer mailer.Mailer
	cfg    Config
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewService(m mailer.Mailer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{mailer: m, cfg: cfg, logger: logger}
}

func (s *Service) NotifySignup(ctx context.Context, p model.Profile) error {
	return s.send(ctx, enums.NotificationSignup, p, "Welcome to Valentina!", "signup.html", map[string]any{
		"Name":     p.Name,
		"AppURL":   s.cfg.AppURL,
		"RevealAt": s.cfg.RevealAt.In(s.cfg.Timezone).Format("Monday, 2 January 2006 at 15:04 MST"),
	})
}

func (s *Service) NotifyMatch(ctx context.Context, recipient, counterpart model.Profile) error {
	return s.send(ctx, enums.NotificationMatch, recipient, "You've been matched on Valentina!", "match.html", map[string]any{
		"Name":         recipient.Name,
		"MatchName":    counterpart.Name,
		"WhatsAppLink": rules.WhatsAppLink(counterpart.WhatsAppPhone),
	})
}

func (s *Service) NotifySignupAsync(p model.Profile) {
	s.async(func(ctx context.Context) error { return s.NotifySignup(ctx, p) })
}

func (s *Service) NotifyMatchAsync(recipient, counterpart model.Profile) {
	s.async(func(ctx context.Context) error { return s.NotifyMatch(ctx, recipient, counterpart) })
}

// NotifyPasswordReset queues the reset email; the request context only
// scopes the caller, not the send.
func (s *Service) NotifyPasswordReset(_ context.Context, p model.Profile, link string) {
	s.async(func(ctx context.Context) error {
		return s.send(ctx, enums.NotificationPasswordReset, p, "Reset your Valentina password", "password_reset.html", map[string]any{
			"Name": p.Name,
			"Link": link,
		})
	})
}

// Wait blocks until queued background sends have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) async(fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification panic", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SendTimeout)
		defer cancel()
		// errors are logged and counted inside send
		_ = fn(ctx)
	}()
}

func (s *Service) send(ctx context.Context, kind enums.NotificationKind, to model.Profile, subject, tmpl string, data map[string]any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		metrics.IncNotification(string(kind), "error")
		return fmt.Errorf("render %s email: %w", kind, err)
	}

	err := s.mailer.Send(ctx, mailer.Message{
		ToEmail: to.Email,
		ToName:  to.Name,
		Subject: subject,
		HTML:    body.String(),
		Text:    subject,
	})
	if err != nil {
		metrics.IncNotification(string(kind), "error")
		s.logger.Warn("notification send failed",
			zap.String("kind", string(kind)),
			zap.String("user_id", to.UserID),
			zap.Error(err),
		)
		return err
	}

	metrics.IncNotification(string(kind), "sent")
	s.logger.Debug("notification sent", zap.String("kind", string(kind)), zap.String("user_id", to.UserID))
	return nil
}
