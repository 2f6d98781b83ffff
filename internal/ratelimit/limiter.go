package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/servicedesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyRequestWrite = "servicedesk:ratelimit:write:%s"

// WriteLimiter throttles request mutations per caller. A nil or disabled
// limiter allows everything.
type WriteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
}

func NewWriteLimiter(p Params) (*WriteLimiter, error) {
	limitCfg := p.Cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if !p.Cfg.Redis.Enabled() {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.WriteRate <= 0 || limitCfg.WriteBurst <= 0 {
		return nil, ErrInvalidLimit
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
	p.Log.Named("ratelimit").Info("request write limiter enabled",
		zap.Float64("rate", limitCfg.WriteRate),
		zap.Int("burst", limitCfg.WriteBurst),
	)

	return NewWithBucket(NewTokenBucket(client), limitCfg.WriteRate, limitCfg.WriteBurst), nil
}

func NewWithBucket(bucket *TokenBucket, rate float64, burst int) *WriteLimiter {
	return &WriteLimiter{bucket: bucket, rate: rate, burst: burst}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowWrite takes one token from the caller's bucket.
func (l *WriteLimiter) AllowWrite(ctx context.Context, userID snowflake.ID) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRequestWrite, userID.String()), l.rate, l.burst)
}
