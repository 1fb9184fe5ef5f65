package mailer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-lifecycle/pkg/mailer/templates"
)

type postedMessage struct {
	path, from, to, subject, html string
}

// newMailgunServer fakes the messages endpoint and answers with status.
func newMailgunServer(t *testing.T, status int) (*httptest.Server, func() []postedMessage) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []postedMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		seen = append(seen, postedMessage{
			path: r.URL.Path, from: r.FormValue("from"), to: r.FormValue("to"),
			subject: r.FormValue("subject"), html: r.FormValue("html"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"<1@mg.example.com>","message":"Queued. Thank you."}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"rejected"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []postedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]postedMessage(nil), seen...)
	}
}

func TestMailgun_HandleDeliversRenderedJob(t *testing.T) {
	srv, posted := newMailgunServer(t, http.StatusOK)
	sender := NewMailgun("mg.example.com", "key-test", "Lifecycle <no-reply@mg.example.com>", srv.URL)
	data := templates.NewData(templates.Brand{AppName: "Lifecycle"}, templates.UserDeleted, "Ada", "a@x.com")

	out, err := Handle(context.Background(), jobBody(t, EmailJob{To: "a@x.com", Template: templates.UserDeleted, Data: data}), sender, 5*time.Second)

	require.NoError(t, err)
	assert.Equal(t, Ack, out)
	msgs := posted()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].path, "mg.example.com")
	assert.Equal(t, "a@x.com", msgs[0].to)
	assert.Equal(t, "Lifecycle <no-reply@mg.example.com>", msgs[0].from)
	assert.NotEmpty(t, msgs[0].subject)
	assert.Contains(t, msgs[0].html, "Ada")
}

func TestMailgun_RejectedSendRequeues(t *testing.T) {
	srv, posted := newMailgunServer(t, http.StatusBadRequest)
	sender := NewMailgun("mg.example.com", "key-test", "no-reply@mg.example.com", srv.URL)

	out, err := Handle(context.Background(), jobBody(t, EmailJob{To: "a@x.com", Subject: "hi", Text: "body"}), sender, 5*time.Second)

	assert.Error(t, err)
	assert.Equal(t, Requeue, out)
	assert.Len(t, posted(), 1)
}

func TestMailgun_EmptyRecipient(t *testing.T) {
	sender := NewMailgun("mg.example.com", "key-test", "no-reply@mg.example.com", "")
	assert.ErrorIs(t, sender.Send(context.Background(), " ", "s", "t", ""), ErrNoRecipient)
	assert.Equal(t, "mg.example.com", sender.Domain())
}
