package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	catalogdomain "github.com/smallbiznis/servicedesk/internal/catalog/domain"
	commentdomain "github.com/smallbiznis/servicedesk/internal/comment/domain"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations. The shared
// *sql.DB is left open.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	return nil
}

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&userdomain.User{},
		&catalogdomain.Plan{},
		&catalogdomain.Offering{},
		&workspacedomain.Workspace{},
		&workspacedomain.Member{},
		&requestdomain.Request{},
		&versiondomain.Entry{},
		&ledgerdomain.Entry{},
		&assigneedomain.Assignee{},
		&linkdomain.Link{},
		&filedomain.File{},
		&commentdomain.Comment{},
		&activitydomain.Activity{},
		&notificationdomain.Notification{},
	}
}

// AutoMigrate builds the schema from the models for dialects the embedded
// SQL does not target (sqlite, mysql).
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
