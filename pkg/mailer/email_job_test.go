package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailJob_Renderable(t *testing.T) {
	assert.False(t, EmailJob{Template: "user_created"}.Renderable())
	assert.True(t, EmailJob{To: "a@x.com", Template: "user_created"}.Renderable())
	assert.False(t, EmailJob{To: "a@x.com", Subject: "hi"}.Renderable())
	assert.True(t, EmailJob{To: "a@x.com", Subject: "hi", HTML: "<p>hi</p>"}.Renderable())
}
