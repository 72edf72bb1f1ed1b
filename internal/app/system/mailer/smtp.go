package mailer

import (
	"context"
	"crypto/tls"

	"gopkg.in/gomail.v2"
)

// SMTPSender delivers through an SMTP relay (Mailpit in dev, SES or a
// provider relay in production).
type SMTPSender struct {
	dialer *gomail.Dialer
}

// NewSMTP builds a sender. Empty user skips AUTH, which Mailpit expects.
func NewSMTP(host string, port int, user, pass string) *SMTPSender {
	d := gomail.NewDialer(host, port, user, pass)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	return &SMTPSender{dialer: d}
}

func (s *SMTPSender) Send(ctx context.Context, from Address, msg Email) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from.Email, from.Name)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
