package db

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/prometheus"
)

// Options carries the pieces New needs besides the connection settings.
type Options struct {
	Logger        gormlogger.Interface
	ServiceName   string
	EnableTracing bool
	EnableMetrics bool
}

// Open connects to the configured database and installs the tracing and
// pool metrics plugins.
func Open(cfg Config, opts Options) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	if opts.Logger != nil {
		gormCfg.Logger = opts.Logger
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.connMaxLifetime())
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.connMaxIdleTime())
	}

	if opts.EnableTracing {
		if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
			return nil, err
		}
	}
	if opts.EnableMetrics {
		if err := conn.Use(prometheus.New(prometheus.Config{
			DBName:          cfg.Name,
			RefreshInterval: 15,
			StartServer:     false,
			Labels: map[string]string{
				"service": opts.ServiceName,
			},
		})); err != nil {
			return nil, err
		}
	}

	return conn, nil
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Options   Options
	Log       *zap.Logger
}

// New is the fx constructor for the shared *gorm.DB.
func New(p Params) (*gorm.DB, error) {
	conn, err := Open(p.Config, p.Options)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			p.Log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	return conn, nil
}

var Module = fx.Module("db",
	fx.Provide(FromAppConfig),
	fx.Provide(New),
)
