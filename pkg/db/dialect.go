package db

import (
	"fmt"
	"strings"

	glebarez "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Kind() {
	case KindMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case KindPostgres:
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case KindSQLite:
		return sqlite.Open(sqliteFile(cfg.Name)), nil
	case KindSQLitePure:
		// cgo-free driver, used by tests and single-binary demos
		return glebarez.Open(sqliteFile(cfg.Name)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}

func sqliteFile(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "postgres" {
		return "servicedesk.db"
	}
	return name
}
