package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mg "github.com/mailgun/mailgun-go/v4"
)

var ErrNoRecipient = errors.New("mailgun: empty recipient")

// Mailgun delivers rendered emails through the Mailgun messages API.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

// NewMailgun builds a sender for domain. apiBase is optional and selects the
// region endpoint, e.g. "https://api.eu.mailgun.net".
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if base := strings.TrimSpace(apiBase); base != "" {
		client.SetAPIBase(base)
	}
	return &Mailgun{Sender: sender, client: client}
}

func (m *Mailgun) Domain() string { return m.client.Domain() }

// Send implements Sender. The caller owns the deadline.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if _, _, err := m.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

var _ Sender = (*Mailgun)(nil)
