// Package app holds wiring shared by the api and worker binaries.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/config"
	"github.com/valentina-app/backend/internal/infra/mailer"
	notifysvc "github.com/valentina-app/backend/internal/services/notifications"
)

// NewNotifications sends through SendGrid when an API key is configured and
// falls back to logging the messages otherwise.
func NewNotifications(cfg config.Config, logger *zap.Logger) (*notifysvc.Service, error) {
	var m mailer.Mailer
	if cfg.Mail.SendGridAPIKey != "" {
		sg, err := mailer.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.FromAddress, cfg.Mail.FromName, "")
		if err != nil {
			return nil, fmt.Errorf("init sendgrid mailer: %w", err)
		}
		m = sg
	} else {
		logger.Warn("sendgrid api key not set, emails will only be logged")
		m = mailer.NewLogMailer(logger)
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.App.Timezone), zap.Error(err))
		loc = time.UTC
	}

	return notifysvc.NewService(m, notifysvc.Config{
		AppURL:      cfg.App.PublicURL,
		RevealAt:    cfg.App.RevealAt,
		Timezone:    loc,
		SendTimeout: cfg.Mail.SendTimeout,
	}, logger), nil
}
