package email

import (
	"github.com/smallbiznis/servicedesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig picks SMTP delivery when a host is configured and falls back
// to a provider that drops every message.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.Email.Enabled() {
		log.Info("email delivery disabled")
		return &NoOpProvider{}
	}
	log.Info("email delivery via smtp",
		zap.String("host", cfg.Email.SMTPHost),
		zap.Int("port", cfg.Email.SMTPPort),
		zap.String("from", cfg.Email.SMTPFrom),
	)
	return NewSMTP(Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	})
}
