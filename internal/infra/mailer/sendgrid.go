package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer builds a mailer for the SendGrid v3 API. baseURL is only
// set in tests; empty means the public endpoint.
func NewSendGridMailer(apiKey, fromAddress, fromName, baseURL string) (*SendGridMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}
	if strings.TrimSpace(fromAddress) == "" {
		return nil, fmt.Errorf("mail from address is empty")
	}

	client := sendgrid.NewSendClient(apiKey)
	if baseURL != "" {
		client.Request.BaseURL = strings.TrimRight(baseURL, "/") + "/v3/mail/send"
	}

	return &SendGridMailer{
		client: client,
		from:   mail.NewEmail(fromName, fromAddress),
	}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("recipient email is empty")
	}

	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	payload := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("send via sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer stands in for SendGrid when no API key is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent, no provider configured",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
	)
	return nil
}
