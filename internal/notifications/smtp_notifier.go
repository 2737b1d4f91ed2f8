package notifications

import (
	"context"
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // "apikey" for the SendGrid relay
	Password string
	From     string
}

// dialer is the part of gomail.Dialer the notifier uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier delivers mail through an SMTP relay with gomail.
type SMTPNotifier struct {
	from   string
	dialer dialer
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	return &SMTPNotifier{from: cfg.From, dialer: d}
}

func (n *SMTPNotifier) SendVerificationEmail(ctx context.Context, in VerificationEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := newVerificationMessage(n.from, in)

	// gomail has no context support; run the send so the caller's deadline
	// still bounds how long we wait for it.
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newVerificationMessage(from string, in VerificationEmail) *gomail.Message {
	text, htmlBody := verificationBodies(in.Link)

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", in.To)
	m.SetHeader("Subject", verificationSubject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", htmlBody)
	return m
}
