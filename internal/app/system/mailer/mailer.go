// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Backends selectable by config.
const (
	BackendLog      = "log"
	BackendSMTP     = "smtp"
	BackendSendGrid = "sendgrid"
)

// Email is one outbound message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, from Address, msg Email) error
}

// Address is a display name plus mailbox.
type Address struct {
	Name  string
	Email string
}

// Mailer stamps the configured From address on every message.
type Mailer struct {
	sender Sender
	from   Address
	log    *zap.Logger
}

func New(sender Sender, from Address, logger *zap.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, log: logger}
}

func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if m == nil || m.sender == nil {
		return errors.New("mailer not configured")
	}
	if msg.To == "" {
		return errors.New("mailer: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.sender.Send(ctx, m.from, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to zap instead of delivering them. It is the
// development backend; the body is logged so the OTP can be read.
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, from Address, msg Email) error {
	s.Log.Info("mail (log backend)",
		zap.String("from", from.Email),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody))
	return nil
}

// Recorder keeps sent messages in memory for tests. Set Err to fail sends.
type Recorder struct {
	mu   sync.Mutex
	Sent []Email
	Err  error
}

func (r *Recorder) Send(_ context.Context, _ Address, msg Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, msg)
	return nil
}

// Last returns the most recent message, or false when none was sent.
func (r *Recorder) Last() (Email, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return Email{}, false
	}
	return r.Sent[len(r.Sent)-1], true
}
