// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// OTPEmailData fills the verification code templates.
type OTPEmailData struct {
	SiteName  string
	Name      string
	Code      string
	ExpiresIn string // e.g. "10 minutes"
}

var (
	otpText = texttemplate.Must(texttemplate.New("otp.txt").Parse(otpTextTemplate))
	otpHTML = htmltemplate.Must(htmltemplate.New("otp.html").Parse(otpHTMLTemplate))
)

// BuildOTPEmail renders both bodies. The caller sets To.
func BuildOTPEmail(data OTPEmailData) (Email, error) {
	var text, html bytes.Buffer
	if err := otpText.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render otp text: %w", err)
	}
	if err := otpHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render otp html: %w", err)
	}
	return Email{
		Subject:  fmt.Sprintf("Your %s verification code", data.SiteName),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}

// FormatExpiry renders d as "10 minutes", "1 hour" and so on.
func FormatExpiry(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

const otpTextTemplate = `Hi {{.Name}},

Your {{.SiteName}} verification code is: {{.Code}}

This code expires in {{.ExpiresIn}}.

If you did not create an account, you can safely ignore this email.
`

const otpHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Verification Code</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Hi {{.Name}}, your verification code is:
              </p>

              <!-- Code Box -->
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>

              <p style="margin: 0 0 24px; font-size: 14px; color: #6b7280; text-align: center;">
                Enter it on the verification screen to activate your account.
              </p>

              <p style="margin: 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not request this code, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
