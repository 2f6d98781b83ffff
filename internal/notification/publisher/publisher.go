// Package publisher pushes committed notification events onto a pub/sub
// channel so connected clients can refresh without polling.
package publisher

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/servicedesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultChannel = "servicedesk.notifications"

var ErrEmptyPayload = errors.New("empty_payload")

type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, []byte) error { return nil }

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
}

// New returns a redis backed publisher when REDIS_ADDR is set and a no-op
// otherwise.
func New(p Params) Publisher {
	if !p.Cfg.Redis.Enabled() {
		p.Log.Named("notification.publisher").Info("redis not configured, notification events stay local")
		return NoOpPublisher{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.Redis.Addr,
		Password: p.Cfg.Redis.Password,
		DB:       p.Cfg.Redis.DB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisPublisher(client, p.Cfg.Redis.NotificationChannel)
}
