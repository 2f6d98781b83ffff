package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var (
	ErrNoRecipients    = errors.New("no_recipients")
	ErrUnknownTemplate = errors.New("unknown_template")
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", strings.Join(to, ", "), subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, tmpl Template, data map[string]any) error {
	body, err := Render(tmpl, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, to, Subject(tmpl, data), body)
}

// Render executes the embedded body for tmpl.
func Render(tmpl Template, data map[string]any) (string, error) {
	if !tmpl.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl)
	}
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(tmpl)+".html", data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func Subject(tmpl Template, data map[string]any) string {
	if subj, ok := data["subject"].(string); ok && subj != "" {
		return subj
	}
	title, _ := data["title"].(string)
	switch tmpl {
	case TemplateRequestCreated:
		return fmt.Sprintf("New request: %s", title)
	case TemplateRequestStatusChanged:
		status, _ := data["status"].(string)
		return fmt.Sprintf("%s is now %s", title, strings.ReplaceAll(status, "_", " "))
	case TemplateRequestUpdated:
		return fmt.Sprintf("Request updated: %s", title)
	}
	return "Notification from Servicedesk"
}
