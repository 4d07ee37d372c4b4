package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendRejectsEmptyRecipients(t *testing.T) {
	m := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@example.com"}, nil)
	err := m.Send(context.Background(), Message{Subject: "Reminder: Go Meetup", Body: "hi"})
	assert.ErrorContains(t, err, "no recipients")
}

func TestSendHonorsCanceledContext(t *testing.T) {
	m := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, Message{Subject: "s", To: []string{"u@example.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}
