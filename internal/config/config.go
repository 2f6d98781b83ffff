package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	// PlatformAdminID pins the user that receives platform-level
	// notifications. Zero means "resolve the oldest global admin".
	PlatformAdminID int64
	SeedDemoData    bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Slack     SlackConfig
}

type RedisConfig struct {
	Addr                string
	Password            string
	DB                  int
	NotificationChannel string
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig throttles request writes per caller. It needs Redis.
type RateLimitConfig struct {
	Enabled    bool
	WriteRate  float64
	WriteBurst int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

type SlackConfig struct {
	OpsChannel string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getenv("APP_SERVICE", "servicedesk"),
		AppVersion:      getenv("APP_VERSION", "0.1.0"),
		Environment:     getenv("ENVIRONMENT", "development"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:    getenv("OTLP_ENDPOINT", "localhost:4317"),
		PlatformAdminID: getenvInt64("PLATFORM_ADMIN_ID", 0),
		SeedDemoData:    getenvBool("SEED_DEMO_DATA", false),
		DBType:          getenv("DATABASE_TYPE", "postgres"),
		DBHost:          getenv("DATABASE_HOST", "localhost"),
		DBPort:          getenv("DATABASE_PORT", "5432"),
		DBName:          getenv("DATABASE_NAME", "postgres"),
		DBUser:          getenv("DATABASE_USER", "postgres"),
		DBPassword:      getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:       getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:   getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:   getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		// seconds
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Redis: RedisConfig{
			Addr:                strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:            getenv("REDIS_PASSWORD", ""),
			DB:                  getenvInt("REDIS_DB", 0),
			NotificationChannel: getenv("REDIS_NOTIFICATION_CHANNEL", "servicedesk.notifications"),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getenvBool("RATE_LIMIT_ENABLED", false),
			WriteRate:  getenvFloat("RATE_LIMIT_WRITE_RATE", 1),
			WriteBurst: getenvInt("RATE_LIMIT_WRITE_BURST", 10),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@servicedesk.local"),
		},
		Slack: SlackConfig{
			OpsChannel: strings.TrimSpace(getenv("SLACK_OPS_CHANNEL", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
