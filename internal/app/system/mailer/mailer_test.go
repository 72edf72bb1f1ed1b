package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBuildOTPEmail(t *testing.T) {
	msg, err := BuildOTPEmail(OTPEmailData{
		SiteName:  "LearnHub",
		Name:      `<b>Ann</b>`,
		Code:      "123456",
		ExpiresIn: FormatExpiry(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("BuildOTPEmail: %v", err)
	}
	if msg.Subject != "Your LearnHub verification code" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, body := range []string{msg.TextBody, msg.HTMLBody} {
		if !strings.Contains(body, "123456") || !strings.Contains(body, "10 minutes") {
			t.Errorf("body missing code or expiry:\n%s", body)
		}
	}
	if strings.Contains(msg.HTMLBody, "<b>Ann</b>") {
		t.Error("html body did not escape the name")
	}
}

func TestFormatExpiry(t *testing.T) {
	tests := map[time.Duration]string{
		10 * time.Minute: "10 minutes",
		time.Minute:      "1 minute",
		2 * time.Hour:    "2 hours",
		90 * time.Minute: "90 minutes",
		30 * time.Second: "30 seconds",
	}
	for d, want := range tests {
		if got := FormatExpiry(d); got != want {
			t.Errorf("FormatExpiry(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestMailer_Send(t *testing.T) {
	rec := &Recorder{}
	m := New(rec, Address{Name: "LearnHub", Email: "noreply@example.com"}, zap.NewNop())

	if err := m.Send(context.Background(), Email{Subject: "x"}); err == nil {
		t.Error("empty recipient accepted")
	}
	if err := m.Send(context.Background(), Email{To: "a@example.com", Subject: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if last, ok := rec.Last(); !ok || last.To != "a@example.com" {
		t.Errorf("last = %+v", last)
	}

	rec.Err = errors.New("relay down")
	if err := m.Send(context.Background(), Email{To: "a@example.com"}); !errors.Is(err, rec.Err) {
		t.Errorf("err = %v, want wrapped relay error", err)
	}
}

func TestSendGridPrepare(t *testing.T) {
	s := NewSendGrid("key")
	m := s.prepare(Address{Name: "LearnHub", Email: "noreply@example.com"}, Email{
		To: "a@example.com", Subject: "Code", TextBody: "t", HTMLBody: "<p>h</p>",
	})
	if m.From.Address != "noreply@example.com" || len(m.Content) != 2 {
		t.Errorf("from = %+v content = %d", m.From, len(m.Content))
	}
	if len(m.Personalizations) != 1 || m.Personalizations[0].To[0].Address != "a@example.com" {
		t.Errorf("personalizations = %+v", m.Personalizations)
	}
}
