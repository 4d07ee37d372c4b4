// Package mailer sends plain-text mail over SMTP.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is one outbound email.
type Message struct {
	Subject string
	Body    string
	From    string // empty uses the configured sender
	To      []string
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP is the mail collaborator backed by an SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTP creates an SMTP mailer. Connections are opened per send.
func NewSMTP(cfg SMTPConfig, logger *zap.Logger) *SMTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers msg. The context is checked before dialing; gomail itself
// does not take one.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("send %q: no recipients", msg.Subject)
	}
	from := msg.From
	if from == "" {
		from = m.from
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	m.logger.Debug("mail sent", zap.String("subject", msg.Subject), zap.Strings("to", msg.To))
	return nil
}
