package db

import (
	"strings"
	"time"

	"github.com/smallbiznis/servicedesk/internal/config"
)

const (
	KindPostgres   = "postgres"
	KindMySQL      = "mysql"
	KindSQLite     = "sqlite"
	KindSQLitePure = "sqlite-pure"
)

// Config is the connection side of the application settings. Pool timings
// are whole seconds.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// FromAppConfig maps the application settings onto connection settings.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

func (c Config) Kind() string {
	return strings.ToLower(strings.TrimSpace(c.Type))
}

// UsesSQLMigrations reports whether the schema comes from the embedded
// migration files. Other dialects are auto-migrated from the models.
func (c Config) UsesSQLMigrations() bool {
	return c.Kind() == KindPostgres
}

func (c Config) connMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

func (c Config) connMaxIdleTime() time.Duration {
	return time.Duration(c.ConnMaxIdleTime) * time.Second
}
