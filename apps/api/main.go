package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	"github.com/talentgrid/campushire/internal/migration"
	"github.com/talentgrid/campushire/internal/observability"
	"github.com/talentgrid/campushire/internal/server"
	"github.com/talentgrid/campushire/pkg/db"
)

// API-only deployment. The expiry reaper runs as its own app so the
// sweep cadence is independent of HTTP scaling.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
