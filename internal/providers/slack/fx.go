package slack

import (
	"github.com/smallbiznis/servicedesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Slack.OpsChannel == "" {
		return &NoOpProvider{}
	}
	return NewLogProvider(log)
}
