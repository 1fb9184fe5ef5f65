package messaging

import (
	"context"
	"fmt"

	"github.com/oksasatya/go-user-lifecycle/internal/application"
	"github.com/oksasatya/go-user-lifecycle/pkg/mailer"
	"github.com/oksasatya/go-user-lifecycle/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// EmailNotifier turns lifecycle events into email jobs for the email worker.
type EmailNotifier struct {
	Pub   Publisher
	Brand templates.Brand
}

func NewEmailNotifier(pub Publisher, brand templates.Brand) *EmailNotifier {
	return &EmailNotifier{Pub: pub, Brand: brand}
}

func (n *EmailNotifier) Notify(ctx context.Context, ev application.UserEvent) error {
	if n == nil || n.Pub == nil || ev.Email == "" {
		return nil
	}
	tmpl := templateFor(ev.Type)
	if !templates.Known(tmpl) {
		return fmt.Errorf("no email template for event %q", ev.Type)
	}
	job := mailer.EmailJob{
		To:       ev.Email,
		Template: tmpl,
		Data: templates.NewData(n.Brand, ev.Type, ev.Name, ev.Email,
			templates.WithTime(ev.At),
			templates.WithChanges(ev.Changes),
			templates.WithPhotoURL(ev.PhotoURL),
		),
	}
	return n.Pub.PublishJSON(ctx, job.Template, job)
}

func templateFor(eventType string) string {
	switch eventType {
	case application.EventUserCreated:
		return templates.UserCreated
	case application.EventUserUpdated:
		return templates.UserUpdated
	case application.EventUserDeleted:
		return templates.UserDeleted
	}
	return ""
}
