package email

import "context"

//go:generate mockgen -source=provider.go -destination=./mocks/mock_provider.go -package=mocks

// Template names an embedded HTML body under templates/.
type Template string

const (
	TemplateRequestCreated       Template = "request_created"
	TemplateRequestUpdated       Template = "request_updated"
	TemplateRequestStatusChanged Template = "request_status_changed"
)

func (t Template) Valid() bool {
	switch t {
	case TemplateRequestCreated, TemplateRequestUpdated, TemplateRequestStatusChanged:
		return true
	}
	return false
}

// Provider delivers request notifications by email. Delivery happens after
// the unit of work commits, so implementations never see a transaction.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, tmpl Template, data map[string]any) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(context.Context, []string, string, string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(context.Context, []string, Template, map[string]any) error {
	return nil
}
