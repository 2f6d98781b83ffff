package observability

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/servicedesk/internal/config"
)

// Config gathers logging, tracing and query-logging settings. Values come
// from the application config unless an OTEL_* or LOG_* variable overrides
// them.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	SlowQueryThreshold    time.Duration
	SlowLockWaitThreshold time.Duration
	DBPoolMetricsEnabled  bool
}

func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName:           firstNonEmpty(cfg.AppName, "servicedesk"),
		Environment:           env("DEPLOYMENT_ENV", cfg.Environment),
		Version:               env("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:              strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(env("LOG_FORMAT", "json")),
		OtelEnabled:           envBool("OTEL_ENABLED", false),
		OtelExporterEndpoint:  env("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol:  strings.ToLower(env("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio:     envFloat("OTEL_SAMPLING_RATIO", 0.1),
		SlowQueryThreshold:    envMillis("DB_SLOW_QUERY_MS", 200*time.Millisecond),
		SlowLockWaitThreshold: envMillis("DB_SLOW_LOCK_MS", 50*time.Millisecond),
		DBPoolMetricsEnabled:  envBool("DB_POOL_METRICS_ENABLED", true),
	}
}

// Debug is on for an explicit debug level and for local environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func env(key, def string) string {
	return firstNonEmpty(os.Getenv(key), strings.TrimSpace(def))
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func envFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return parsed
}

func envMillis(key string, def time.Duration) time.Duration {
	ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
