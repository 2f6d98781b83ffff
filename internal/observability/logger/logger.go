package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/servicedesk/internal/observability/context"
	"github.com/smallbiznis/servicedesk/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the process logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	SamplingInitial     int
	SamplingThereafter  int
	SamplingWindow      time.Duration
	IncludeCaller       bool
	IncludeStackOnError bool
}

func (c Config) sampling() (time.Duration, int, int) {
	window, initial, thereafter := c.SamplingWindow, c.SamplingInitial, c.SamplingThereafter
	if window <= 0 {
		window = time.Second
	}
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 100
	}
	return window, initial, thereafter
}

// New builds the JSON logger, installs it as the zap global and flushes it
// on shutdown.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg, err := zapConfig(cfg)
	if err != nil {
		return nil, err
	}

	window, initial, thereafter := cfg.sampling()
	options := []zap.Option{
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, window, initial, thereafter)
		}),
	}
	if cfg.IncludeCaller {
		options = append(options, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	log, err := zapCfg.Build(options...)
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", firstNonEmpty(cfg.ServiceName, "servicedesk")),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = log.Sync()
				return nil
			},
		})
	}
	return log, nil
}

func zapConfig(cfg Config) (zap.Config, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level := firstNonEmpty(cfg.Level, "info")
	if cfg.Debug && cfg.Level == "" {
		level = "debug"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return zapCfg, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zapCfg, nil
}

// FromContext returns the global logger enriched with the call's
// identifiers.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds the identifiers present on ctx. Absent ones are left
// out rather than logged empty.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID != "" {
		fields = append(fields, zap.String("http_request_id", requestID))
	}
	if cid := correlation.FromContext(ctx); cid != "" && cid != requestID {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if workspaceID := obscontext.WorkspaceIDFromContext(ctx); workspaceID != "" {
		fields = append(fields, zap.String("workspace_id", workspaceID))
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		fields = append(fields, zap.String("actor_type", actorType), zap.String("actor_id", actorID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return fields
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
