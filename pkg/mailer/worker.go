package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-user-lifecycle/pkg/mailer/templates"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota
	Drop            // malformed, never retry
	Requeue         // transient send failure
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Drop:
		return "drop"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

// Sender is satisfied by *Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var ErrNotRenderable = errors.New("email job has no recipient or content")

// Build renders a job into subject, text and html bodies.
func Build(job EmailJob) (subject, text, html string, err error) {
	if !job.Renderable() {
		return "", "", "", ErrNotRenderable
	}
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	return templates.Render(job.Template, job.Data)
}

// Handle decodes, renders and sends one queued job.
func Handle(ctx context.Context, body []byte, sender Sender, sendTimeout time.Duration) (Outcome, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, fmt.Errorf("decode email job: %w", err)
	}
	subject, text, html, err := Build(job)
	if err != nil {
		return Drop, fmt.Errorf("render %q: %w", job.Template, err)
	}

	if sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sendTimeout)
		defer cancel()
	}
	if err := sender.Send(ctx, job.To, subject, text, html); err != nil {
		return Requeue, fmt.Errorf("send to %s: %w", job.To, err)
	}
	return Ack, nil
}
