package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/migration"
	"github.com/smallbiznis/servicedesk/internal/observability"
	"github.com/smallbiznis/servicedesk/internal/server"
	"github.com/smallbiznis/servicedesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domains and HTTP
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
