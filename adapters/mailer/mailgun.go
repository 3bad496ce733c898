package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/internal/config"
)

const sendTimeout = 10 * time.Second

type mailgunMailer struct {
	client *mg.MailgunImpl
	sender string
}

func NewMailgunMailer(cfg config.Config) (service.Mailer, error) {
	if cfg.Mailgun.Domain == "" || cfg.Mailgun.APIKey == "" {
		return nil, fmt.Errorf("mailgun domain or api key has not config")
	}
	return newMailgunMailer(mg.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.APIKey), cfg.Mailgun.Sender), nil
}

func newMailgunMailer(client *mg.MailgunImpl, sender string) *mailgunMailer {
	return &mailgunMailer{client: client, sender: sender}
}

// Send uses html as the HTML body when non-empty.
func (m *mailgunMailer) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
