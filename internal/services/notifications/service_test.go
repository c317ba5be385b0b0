package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/infra/mailer"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifyMatchIncludesWhatsAppLink(t *testing.T) {
	m := &captureMailer{}
	svc := NewService(m, Config{}, nil)

	err := svc.NotifyMatch(context.Background(),
		model.Profile{UserID: "u1", Name: "Tunde", Email: "tunde@example.com"},
		model.Profile{UserID: "u2", Name: "Ada <3", WhatsAppPhone: "+234 801 000 0000"},
	)
	if err != nil {
		t.Fatalf("notify match: %v", err)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(m.sent))
	}
	html := m.sent[0].HTML
	if !strings.Contains(html, "https://wa.me/2348010000000") {
		t.Fatalf("missing whatsapp link in body")
	}
	if !strings.Contains(html, "Ada &lt;3") {
		t.Fatalf("counterpart name must be html-escaped")
	}
	if m.sent[0].ToEmail != "tunde@example.com" {
		t.Fatalf("unexpected recipient: %s", m.sent[0].ToEmail)
	}
}

func TestNotifySignupShowsRevealTimeInLocalZone(t *testing.T) {
	m := &captureMailer{}
	lagos, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	svc := NewService(m, Config{
		AppURL:   "https://valentina.ng/home",
		RevealAt: time.Date(2027, time.February, 14, 5, 0, 0, 0, time.UTC),
		Timezone: lagos,
	}, nil)

	if err := svc.NotifySignup(context.Background(), model.Profile{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("notify signup: %v", err)
	}
	if !strings.Contains(m.sent[0].HTML, "14 February 2027 at 06:00") {
		t.Fatalf("reveal time not rendered in local zone: %s", m.sent[0].HTML)
	}
}

func TestAsyncSendsDoNotSurfaceErrors(t *testing.T) {
	m := &captureMailer{err: errors.New("provider down")}
	svc := NewService(m, Config{SendTimeout: time.Second}, nil)

	svc.NotifyMatchAsync(model.Profile{Email: "a@example.com"}, model.Profile{Name: "B"})
	svc.NotifySignupAsync(model.Profile{Email: "a@example.com"})
	svc.NotifyPasswordReset(context.Background(), model.Profile{Email: "a@example.com"}, "https://valentina.ng/reset?token=x")
	svc.Wait()

	if len(m.sent) != 0 {
		t.Fatalf("failing mailer must not record messages")
	}
}

func TestNotifyPasswordResetRendersLink(t *testing.T) {
	m := &captureMailer{}
	svc := NewService(m, Config{}, nil)

	svc.NotifyPasswordReset(context.Background(), model.Profile{Name: "Ada", Email: "ada@example.com"}, "https://valentina.ng/reset?token=abc")
	svc.Wait()

	if len(m.sent) != 1 || !strings.Contains(m.sent[0].HTML, "https://valentina.ng/reset?token=abc") {
		t.Fatalf("expected reset link in message, got %+v", m.sent)
	}
}
