package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/talentgrid/campushire/internal/clock"
	"github.com/talentgrid/campushire/internal/config"
	"github.com/talentgrid/campushire/internal/migration"
	"github.com/talentgrid/campushire/internal/observability"
	"github.com/talentgrid/campushire/internal/reaper"
	"github.com/talentgrid/campushire/internal/server"
	"github.com/talentgrid/campushire/pkg/db"
)

// The monolith runs the API and the expiry reaper in one process.
func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus every domain module it wires in
		server.Module,

		// Background expiry sweep
		reaper.Module,
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
