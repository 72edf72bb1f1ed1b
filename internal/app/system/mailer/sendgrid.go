package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	key string
}

func NewSendGrid(apiKey string) *SendGridSender {
	return &SendGridSender{key: apiKey}
}

func (s *SendGridSender) prepare(from Address, msg Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(from.Name, from.Email))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, from Address, msg Email) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(from, msg))

	type result struct {
		status int
		body   string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		res, err := sendgrid.API(req)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{status: res.StatusCode, body: res.Body}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		if r.status >= http.StatusBadRequest {
			return fmt.Errorf("sendgrid status %d: %s", r.status, r.body)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
