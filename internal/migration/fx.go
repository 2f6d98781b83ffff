package migration

import (
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/seed"
	"github.com/smallbiznis/servicedesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, dbCfg db.Config, log *zap.Logger) error {
		if dbCfg.UsesSQLMigrations() {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("database schema ready", zap.String("db_type", dbCfg.Kind()))

		if cfg.SeedDemoData && !cfg.IsProduction() {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
