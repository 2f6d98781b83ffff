package slack

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}

// LogProvider writes messages to the application log instead of Slack.
// Used in development so ops messages stay visible.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("slack")}
}

func (p *LogProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	p.log.Info("slack message", zap.String("channel", channelID), zap.String("message", message))
	return nil
}
