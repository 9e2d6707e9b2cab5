package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"fifohub/config"
)

type EmailData struct {
	Subject   string
	To        []string
	Template  string
	Data      interface{}
	Year      int
	FromName  string
	FromEmail string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"pin_changed": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .workspace { font-size: 18px; font-weight: bold; color: #3498db; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your kiosk PIN was updated</h2>
    </div>

    <div class="content">
        <p>Hello {{.Data.Name}},</p>
        <p>The owner of <span class="workspace">{{.Data.WorkspaceName}}</span> assigned you a new kiosk sign-in code.</p>
        <p>Ask them for the new code, then use it at the workspace kiosk to sign in.</p>
        <p>The code itself is never sent by email.</p>
    </div>

    <div class="footer">
        <p>If you don't recognize this workspace, you can safely ignore this email.</p>
        <p>© {{.Year}} FIFO Hub. All rights reserved.</p>
    </div>
</body>
</html>`,
	"generic": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body>
    <p>{{.Data}}</p>
</body>
</html>`,
}

// PINChangedEmailData fills the pin_changed template.
type PINChangedEmailData struct {
	Name          string
	WorkspaceName string
}

// RenderEmail executes an embedded template by name.
func RenderEmail(templateName string, data EmailData) (string, error) {
	raw, ok := emailTemplates[templateName]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", templateName)
	}

	tmpl, err := template.New(templateName).Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	data.Year = time.Now().Year()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

// SendEmail delivers a rendered message through the configured SMTP relay.
func SendEmail(to, subject, htmlBody string) error {
	if config.AppConfig.SMTPHost == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.AppConfig.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(
		config.AppConfig.SMTPHost,
		config.AppConfig.SMTPPort,
		config.AppConfig.SMTPUsername,
		config.AppConfig.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
