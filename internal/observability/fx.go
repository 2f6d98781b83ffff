package observability

import (
	"github.com/smallbiznis/servicedesk/internal/observability/logger"
	"github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/observability/tracing"
	"github.com/smallbiznis/servicedesk/pkg/db"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.NewEngineMetrics,
		provideDBOptions,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}

func provideDBOptions(cfg Config) db.Options {
	gormCfg := logger.DefaultGormLoggerConfig()
	gormCfg.SlowThreshold = cfg.SlowQueryThreshold
	gormCfg.LockSlowThreshold = cfg.SlowLockWaitThreshold
	if cfg.Debug() {
		gormCfg.Level = gormlogger.Info
	}
	return db.Options{
		Logger:        logger.NewGormLogger(gormCfg),
		ServiceName:   cfg.ServiceName,
		EnableTracing: cfg.OtelEnabled,
		EnableMetrics: cfg.DBPoolMetricsEnabled,
	}
}
